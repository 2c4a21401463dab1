package entity

import (
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/checker"
	"github.com/Netcracker/qubership-data-contract-validator/view"
)

type ValidationRunEntity struct {
	tableName struct{} `pg:"validation_run"`

	Id          string             `pg:"id,pk,type:varchar"`
	CreatedAt   time.Time          `pg:"created_at,type:timestamp without time zone,notnull"`
	CreatedBy   string             `pg:"created_by,type:varchar"`
	SchemaName  string             `pg:"schema_name,type:varchar,notnull"`
	SchemaHash  string             `pg:"schema_hash,type:varchar,notnull"`
	DataName    string             `pg:"data_name,type:varchar,notnull"`
	Status      string             `pg:"status,type:varchar,notnull"`
	TotalRows   int                `pg:"total_rows,type:integer,use_zero"`
	PassingRows int                `pg:"passing_rows,type:integer,use_zero"`
	PassRate    float64            `pg:"pass_rate,type:double precision,use_zero"`
	Violations  int                `pg:"violations,type:integer,use_zero"`
	Gaps        int                `pg:"gaps,type:integer,use_zero"`
	Threshold   int                `pg:"threshold,type:integer,use_zero"`
	Run         view.ValidationRun `pg:"run,type:jsonb"`
}

func MakeValidationRunEntity(run view.ValidationRun) ValidationRunEntity {
	return ValidationRunEntity{
		Id:          run.RunId,
		CreatedAt:   run.CreatedAt,
		CreatedBy:   run.CreatedBy,
		SchemaName:  run.SchemaName,
		SchemaHash:  run.SchemaHash,
		DataName:    run.DataName,
		Status:      string(run.Report.Status),
		TotalRows:   run.Report.TotalRows,
		PassingRows: run.Report.PassingRows,
		PassRate:    run.Report.PassRate,
		Violations:  len(run.Report.Violations),
		Gaps:        len(run.Report.Gaps),
		Threshold:   run.Report.Threshold,
		Run:         run,
	}
}

func MakeRunSummaryView(ent ValidationRunEntity) view.RunSummary {
	return view.RunSummary{
		RunId:      ent.Id,
		CreatedAt:  ent.CreatedAt,
		CreatedBy:  ent.CreatedBy,
		SchemaName: ent.SchemaName,
		SchemaHash: ent.SchemaHash,
		DataName:   ent.DataName,
		Status:     checker.Status(ent.Status),
		TotalRows:  ent.TotalRows,
		PassRate:   ent.PassRate,
		Violations: ent.Violations,
		Gaps:       ent.Gaps,
		Threshold:  ent.Threshold,
	}
}
