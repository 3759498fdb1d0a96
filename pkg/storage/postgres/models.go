package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/mgcam/npg-porch/pkg/domain"
)

const (
	pipelineTable = "pipeline"
	taskTable     = "task"
	tokenTable    = "token"
	eventTable    = "event"
)

// PgPipeline mirrors a row of the pipeline table.
type PgPipeline struct {
	PipelineID    int64     `db:"pipeline_id"    goqu:"skipinsert"`
	Name          string    `db:"name"`
	Version       string    `db:"version"`
	RepositoryURI string    `db:"repository_uri"`
	Created       time.Time `db:"created"        goqu:"skipinsert"`
}

func (p *PgPipeline) ToDomain() domain.Pipeline {
	return domain.Pipeline{
		ID:            domain.PipelineID(p.PipelineID),
		Name:          p.Name,
		Version:       p.Version,
		RepositoryURI: p.RepositoryURI,
		CreatedAt:     p.Created,
	}
}

func (p *PgPipeline) FromDomain(d domain.Pipeline) {
	*p = PgPipeline{
		PipelineID:    int64(d.ID),
		Name:          d.Name,
		Version:       d.Version,
		RepositoryURI: d.RepositoryURI,
		Created:       d.CreatedAt,
	}
}

// PgTask mirrors a row of the task table. The pipeline is attached by the
// query layer from its own table.
type PgTask struct {
	TaskID        int64           `db:"task_id"        goqu:"skipinsert"`
	PipelineID    int64           `db:"pipeline_id"`
	JobDescriptor string          `db:"job_descriptor"`
	Definition    json.RawMessage `db:"definition"`
	State         string          `db:"state"`
	ClaimedBy     sql.NullInt64   `db:"claimed_by"     goqu:"skipinsert"`
	Created       time.Time       `db:"created"        goqu:"skipinsert"`
	Updated       time.Time       `db:"updated"        goqu:"skipinsert"`
}

func (t *PgTask) ToDomain() domain.Task {
	task := domain.Task{
		ID:            domain.TaskID(t.TaskID),
		Pipeline:      domain.Pipeline{ID: domain.PipelineID(t.PipelineID)},
		Definition:    t.Definition,
		JobDescriptor: t.JobDescriptor,
		State:         domain.TaskState(t.State),
		CreatedAt:     t.Created,
		UpdatedAt:     t.Updated,
	}
	if t.ClaimedBy.Valid {
		id := domain.TokenID(t.ClaimedBy.Int64)
		task.ClaimedBy = &id
	}

	return task
}

func (t *PgTask) FromDomain(d domain.Task) {
	*t = PgTask{
		TaskID:        int64(d.ID),
		PipelineID:    int64(d.Pipeline.ID),
		JobDescriptor: d.JobDescriptor,
		Definition:    d.Definition,
		State:         string(d.State),
		Created:       d.CreatedAt,
		Updated:       d.UpdatedAt,
	}
	if d.ClaimedBy != nil {
		t.ClaimedBy = sql.NullInt64{Int64: int64(*d.ClaimedBy), Valid: true}
	}
}

// PgToken mirrors a row of the token table.
type PgToken struct {
	TokenID     int64         `db:"token_id"     goqu:"skipinsert"`
	PipelineID  sql.NullInt64 `db:"pipeline_id"`
	Description string        `db:"description"`
	Token       string        `db:"token"`
	DateIssued  time.Time     `db:"date_issued"  goqu:"skipinsert"`
	DateRevoked sql.NullTime  `db:"date_revoked" goqu:"skipinsert"`
}

func (t *PgToken) ToDomain() domain.Token {
	token := domain.Token{
		ID:          domain.TokenID(t.TokenID),
		Description: t.Description,
		Value:       t.Token,
		IssuedAt:    t.DateIssued,
	}
	if t.PipelineID.Valid {
		token.Pipeline = &domain.Pipeline{ID: domain.PipelineID(t.PipelineID.Int64)}
	}
	if t.DateRevoked.Valid {
		token.RevokedAt = t.DateRevoked.Time
	}

	return token
}

func (t *PgToken) FromDomain(d domain.Token) {
	*t = PgToken{
		TokenID:     int64(d.ID),
		Description: d.Description,
		Token:       d.Value,
		DateIssued:  d.IssuedAt,
	}
	if d.Pipeline != nil {
		t.PipelineID = sql.NullInt64{Int64: int64(d.Pipeline.ID), Valid: true}
	}
	if !d.RevokedAt.IsZero() {
		t.DateRevoked = sql.NullTime{Time: d.RevokedAt, Valid: true}
	}
}

// PgEvent mirrors a row of the event table.
type PgEvent struct {
	EventID int64         `db:"event_id" goqu:"skipinsert"`
	TaskID  int64         `db:"task_id"`
	TokenID sql.NullInt64 `db:"token_id"`
	Change  string        `db:"change"`
	Time    time.Time     `db:"time"     goqu:"skipinsert"`
}

func (e *PgEvent) ToDomain() domain.Event {
	ev := domain.Event{
		ID:     domain.EventID(e.EventID),
		TaskID: domain.TaskID(e.TaskID),
		Change: e.Change,
		Time:   e.Time,
	}
	if e.TokenID.Valid {
		id := domain.TokenID(e.TokenID.Int64)
		ev.TokenID = &id
	}

	return ev
}

func (e *PgEvent) FromDomain(d domain.Event) {
	*e = PgEvent{
		EventID: int64(d.ID),
		TaskID:  int64(d.TaskID),
		Change:  d.Change,
		Time:    d.Time,
	}
	if d.TokenID != nil {
		e.TokenID = sql.NullInt64{Int64: int64(*d.TokenID), Valid: true}
	}
}

func pgTasksToDomain(rows []PgTask) []domain.Task {
	out := make([]domain.Task, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}

	return out
}
