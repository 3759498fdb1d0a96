package domain

import "time"

// PipelineID uniquely identifies a registered pipeline version.
type PipelineID int64

// LatestVersion is the version placeholder clients may use to refer to the
// most recently registered version of a pipeline.
const LatestVersion = "latest"

// Pipeline is a registered unit of work producer. Each (Name, Version) pair
// is a distinct pipeline row; RepositoryURI points at the code used to
// bootstrap it.
type Pipeline struct {
	// ID is the unique identifier of this pipeline version.
	ID PipelineID `json:"-"`
	// Name is a user-controlled name for the pipeline.
	Name string `json:"name"`
	// Version identifies a concrete release of the pipeline.
	Version string `json:"version"`
	// RepositoryURI points to the pipeline code.
	RepositoryURI string `json:"uri"`

	// CreatedAt is the time the pipeline version was registered.
	CreatedAt time.Time `json:"-"`
}

// WantsLatest reports whether the pipeline reference should resolve to the
// most recently registered version of its name.
func (p Pipeline) WantsLatest() bool {
	return p.Version == "" || p.Version == LatestVersion
}
