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

package service

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/client"
	"github.com/Netcracker/qubership-data-contract-validator/entity"
	"github.com/Netcracker/qubership-data-contract-validator/exception"
	"github.com/Netcracker/qubership-data-contract-validator/export"
	"github.com/Netcracker/qubership-data-contract-validator/loader"
	"github.com/Netcracker/qubership-data-contract-validator/repository"
	"github.com/Netcracker/qubership-data-contract-validator/schema"
	"github.com/Netcracker/qubership-data-contract-validator/secctx"
	"github.com/Netcracker/qubership-data-contract-validator/utils"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

type ValidationService interface {
	Validate(ctx context.Context, req view.ValidateRequest) (*view.ValidationRun, error)
	GetRun(ctx context.Context, runId string) (*view.ValidationRun, error)
	GetStoredRun(ctx context.Context, runId string) (*view.StoredRun, error)
	SaveRun(ctx context.Context, run *view.StoredRun) error
	ExportMarkdown(ctx context.Context, runId string) ([]byte, error)
	ExportFailedRows(ctx context.Context, runId string) ([]byte, error)
	ListHistory(ctx context.Context, limit int, page int) (*view.RunHistory, error)
}

type ValidationConfig struct {
	Threshold int
	Workers   int
}

// NewValidationService wires the run store with optional history. runRepository may be nil.
func NewValidationService(store RunStore, runRepository repository.RunRepository, fileClient client.RemoteFileClient, conf ValidationConfig) ValidationService {
	return &validationServiceImpl{
		store:         store,
		runRepository: runRepository,
		fileClient:    fileClient,
		conf:          conf,
	}
}

// maxHistoryOffset bounds limit*page for history queries.
const maxHistoryOffset = math.MaxInt32

type validationServiceImpl struct {
	store         RunStore
	runRepository repository.RunRepository
	fileClient    client.RemoteFileClient
	conf          ValidationConfig
}

func (v *validationServiceImpl) Validate(ctx context.Context, req view.ValidateRequest) (*view.ValidationRun, error) {
	var schemaName, dataName string
	var schemaData, data []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		schemaName, schemaData, err = v.resolveInput(gctx, "schema", req.SchemaName, req.Schema, req.SchemaUrl)
		return err
	})
	g.Go(func() (err error) {
		dataName, data, err = v.resolveInput(gctx, "data", req.DataName, req.Data, req.DataUrl)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	threshold := req.Threshold
	if threshold <= 0 {
		threshold = v.conf.Threshold
	}
	stored, err := RunValidation(schemaName, schemaData, dataName, data, checker.Options{
		Threshold: threshold,
		Workers:   v.conf.Workers,
	})
	if err != nil {
		return nil, err
	}
	stored.Run.CreatedBy = secctx.GetUserId(ctx)

	if err := v.SaveRun(ctx, stored); err != nil {
		return nil, err
	}
	return &stored.Run, nil
}

// RunValidation executes the whole pipeline on raw file contents without storing anything.
// Schema problems and unsupported formats are returned before any data row is read.
func RunValidation(schemaName string, schemaData []byte, dataName string, data []byte, opts checker.Options) (*view.StoredRun, error) {
	start := time.Now()
	doc, err := loader.LoadSchema(schemaName, schemaData)
	if err != nil {
		return nil, err
	}
	warnings := schema.CheckStructure(doc)
	model, err := schema.Build(doc)
	if err != nil {
		return nil, err
	}
	ds, err := loader.LoadData(dataName, data)
	if err != nil {
		return nil, err
	}

	report := checker.Run(model, ds.Records, opts)
	run := view.ValidationRun{
		RunId:          uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		SchemaName:     schemaName,
		SchemaHash:     utils.CreateSHA256Hash(schemaData),
		DataName:       dataName,
		SchemaWarnings: warnings,
		Dataset:        ds.Info(loader.DefaultSampleRows),
		Report:         report,
	}
	log.Infof("Validated %d rows of %s against %s (%d constraints): %s, it took %dms",
		report.TotalRows, dataName, schemaName, model.Len(), report.Status, time.Since(start).Milliseconds())
	return &view.StoredRun{Run: run, SchemaText: string(schemaData), Data: ds}, nil
}

func (v *validationServiceImpl) resolveInput(ctx context.Context, param string, name string, content []byte, url string) (string, []byte, error) {
	if len(content) > 0 {
		return name, content, nil
	}
	if url == "" {
		return "", nil, &exception.CustomError{
			Status:  http.StatusBadRequest,
			Code:    exception.RequiredParamsMissing,
			Message: exception.RequiredParamsMissingMsg,
			Params:  map[string]interface{}{"params": param + " or " + param + "Url"},
		}
	}
	file, err := v.fileClient.Download(ctx, url)
	if err != nil {
		return "", nil, err
	}
	if name == "" {
		name = file.Name
	}
	return name, file.Data, nil
}

func (v *validationServiceImpl) SaveRun(ctx context.Context, run *view.StoredRun) error {
	if err := v.store.Save(ctx, run); err != nil {
		log.Errorf("Failed to store run %s: %s", run.Run.RunId, err.Error())
		return err
	}
	if v.runRepository != nil {
		if err := v.runRepository.SaveRun(ctx, entity.MakeValidationRunEntity(run.Run)); err != nil {
			log.Errorf("Failed to record run %s in history: %s", run.Run.RunId, err.Error())
		}
	}
	return nil
}

func (v *validationServiceImpl) GetStoredRun(ctx context.Context, runId string) (*view.StoredRun, error) {
	run, err := v.store.Get(ctx, runId)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	if v.runRepository != nil {
		ent, err := v.runRepository.GetRun(ctx, runId)
		if err != nil {
			return nil, err
		}
		if ent != nil {
			return &view.StoredRun{Run: ent.Run}, nil
		}
	}
	return nil, &exception.CustomError{
		Status:  http.StatusNotFound,
		Code:    exception.EntityNotFound,
		Message: exception.EntityNotFoundMsg,
		Params:  map[string]interface{}{"entity": "validation run", "id": runId},
	}
}

func (v *validationServiceImpl) GetRun(ctx context.Context, runId string) (*view.ValidationRun, error) {
	stored, err := v.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	return &stored.Run, nil
}

func (v *validationServiceImpl) ExportMarkdown(ctx context.Context, runId string) ([]byte, error) {
	stored, err := v.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	return export.Markdown(stored.Run)
}

func (v *validationServiceImpl) ExportFailedRows(ctx context.Context, runId string) ([]byte, error) {
	stored, err := v.GetStoredRun(ctx, runId)
	if err != nil {
		return nil, err
	}
	if stored.Data == nil {
		return nil, exception.NewDatasetUnavailable(runId)
	}
	return export.FailedRowsCSV(stored.Data, stored.Run.Report)
}

func (v *validationServiceImpl) ListHistory(ctx context.Context, limit int, page int) (*view.RunHistory, error) {
	if v.runRepository == nil {
		return nil, &exception.CustomError{
			Status:  http.StatusNotImplemented,
			Code:    exception.HistoryDisabled,
			Message: exception.HistoryDisabledMsg,
		}
	}
	if limit < 1 || page < 0 || page > maxHistoryOffset/limit {
		return &view.RunHistory{Runs: []view.RunSummary{}}, nil
	}
	ents, err := v.runRepository.ListRuns(ctx, limit, limit*page)
	if err != nil {
		return nil, err
	}
	result := view.RunHistory{Runs: make([]view.RunSummary, 0, len(ents))}
	for _, ent := range ents {
		result.Runs = append(result.Runs, entity.MakeRunSummaryView(ent))
	}
	return &result, nil
}
