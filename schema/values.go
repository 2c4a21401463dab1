// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// ToFloat converts any numeric value produced by the JSON, YAML or CSV decoders.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// RuntimeType returns the JSON type name of a decoded value. Integral numbers report "integer".
func RuntimeType(v any) string {
	if v == nil {
		return TypeNull
	}
	switch t := v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBoolean
	case map[string]any:
		return TypeObject
	case []any:
		return TypeArray
	default:
		if f, ok := ToFloat(t); ok {
			if !math.IsInf(f, 0) && f == math.Trunc(f) {
				return TypeInteger
			}
			return TypeNumber
		}
	}
	return fmt.Sprintf("%T", v)
}

// MatchesType reports whether a value satisfies a declared JSON type.
func MatchesType(v any, declared string) bool {
	actual := RuntimeType(v)
	if actual == declared {
		return true
	}
	return declared == TypeNumber && actual == TypeInteger
}

// CanonicalKey returns a comparable key so that 1, 1.0 and int64(1) are the same enum member.
func CanonicalKey(v any) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	}
	if f, ok := ToFloat(v); ok {
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("x:%v", v)
	}
	return "j:" + string(data)
}

// FormatValue renders a value for messages and exports.
func FormatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	}
	if f, ok := ToFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
