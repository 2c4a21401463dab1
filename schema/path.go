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

import "strconv"

type LookupState int

const (
	Absent LookupState = iota
	Null
	Present
)

func (s LookupState) String() string {
	switch s {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case Present:
		return "present"
	}
	return "unknown"
}

// Lookup is the value found at one concrete location of a field path.
type Lookup struct {
	State LookupState
	Value any
	Path  string
}

// Resolve finds every concrete location of a field path inside a row.
// A location exists only when its parent container exists: an absent parent object
// or array yields no lookups, so nested rules are not evaluated against missing parents.
// Array steps fan out to one lookup per element with the element index in Path.
func Resolve(row map[string]any, segs []Segment) []Lookup {
	if len(segs) == 0 {
		return nil
	}
	return resolve(row, "", segs, nil)
}

func resolve(cur any, curPath string, segs []Segment, acc []Lookup) []Lookup {
	seg := segs[0]
	rest := segs[1:]

	if seg.Items {
		arr, ok := cur.([]any)
		if !ok {
			return acc
		}
		for i, el := range arr {
			p := curPath + "[" + strconv.Itoa(i) + "]"
			if len(rest) == 0 {
				acc = append(acc, lookupOf(el, true, p))
				continue
			}
			acc = resolve(el, p, rest, acc)
		}
		return acc
	}

	obj, ok := cur.(map[string]any)
	if !ok {
		return acc
	}
	p := seg.Name
	if curPath != "" {
		p = curPath + "." + seg.Name
	}
	v, found := obj[seg.Name]
	if len(rest) == 0 {
		return append(acc, lookupOf(v, found, p))
	}
	if !found || v == nil {
		return acc
	}
	return resolve(v, p, rest, acc)
}

func lookupOf(v any, found bool, path string) Lookup {
	switch {
	case !found:
		return Lookup{State: Absent, Path: path}
	case v == nil:
		return Lookup{State: Null, Path: path}
	default:
		return Lookup{State: Present, Value: v, Path: path}
	}
}
