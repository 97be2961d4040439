package dataset

import (
	"time"

	"github.com/danielpatrickdp/atleastn/internal/evaluator"
)

// #region stored-dataset
// StoredDataset is a dataset read back from the store.
type StoredDataset struct {
	Name       string
	Attributes []string
	Entities   evaluator.Dataset[string]
	UpdatedAt  time.Time
}

// DatasetInfo summarizes a stored dataset without loading its entities.
type DatasetInfo struct {
	Name        string
	Attributes  int
	EntityCount int
	UpdatedAt   time.Time
}

// #endregion stored-dataset

// #region run
// Run is one recorded evaluation of a dataset.
type Run struct {
	RunID      string
	Dataset    string
	N          int
	ConfigJSON string
	Results    []evaluator.Result
	CreatedAt  time.Time
}

// #endregion run
