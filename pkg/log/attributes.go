package log

// Standard attribute keys used across lgbridge logging. Keys follow a
// hierarchical naming convention (e.g. "data.rows") so records can be
// filtered by prefix.
const (
	// OperationKey names the boundary or engine operation being performed.
	// Examples: "dataset_create", "booster_update", "predict", "save_model"
	OperationKey = "op"

	// ComponentKey identifies the package performing the operation.
	// Examples: "capi", "lightgbm", "cmd"
	ComponentKey = "component"

	// RowsKey is the number of rows in the matrix being processed.
	RowsKey = "data.rows"

	// ColsKey is the number of feature columns in the matrix being processed.
	ColsKey = "data.cols"

	// IterationKey is the current boosting iteration.
	IterationKey = "boost.iteration"

	// NumClassKey is the number of predicted classes of a booster.
	NumClassKey = "boost.num_class"

	// HandleKey is the 32-bit handle token involved in a boundary call.
	HandleKey = "handle"

	// DurationMsKey is the elapsed wall time of an operation in milliseconds.
	DurationMsKey = "duration_ms"
)
