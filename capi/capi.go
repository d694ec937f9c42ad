package capi

import (
	"strings"

	"github.com/shiroyagi-lab/lgbridge/lightgbm"
	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// Status codes returned by every boundary operation.
const (
	StatusOK    int32 = 0
	StatusError int32 = -1
)

// Element type tags for DatasetSetField, matching the LightGBM C API
// C_API_DTYPE values.
const (
	DtypeFloat32 int32 = 0
	DtypeFloat64 int32 = 1
	DtypeInt32   int32 = 2
	DtypeInt64   int32 = 3
)

// Predict type selectors, re-exported from the engine.
const (
	PredictNormal    int32 = lightgbm.PredictNormal
	PredictRawScore  int32 = lightgbm.PredictRawScore
	PredictLeafIndex int32 = lightgbm.PredictLeafIndex
	PredictContrib   int32 = lightgbm.PredictContrib
)

func fail(err error) int32 {
	setLastError(err)
	return StatusError
}

// DatasetCreateFromMat creates a dataset from a row-major dense float32
// matrix. The layout is fixed to row-major and no reference dataset is
// supported. On success the new handle is written to out.
func DatasetCreateFromMat(data []float32, nrow, ncol int32, params string, out *DatasetHandle) int32 {
	if out == nil {
		return fail(scierr.NewValueError("DatasetCreateFromMat", "out handle is nil"))
	}
	dataset, err := lightgbm.NewDatasetFromMat(data, int(nrow), int(ncol), params)
	if err != nil {
		return fail(err)
	}
	*out = storeDataset(dataset)
	return StatusOK
}

// DatasetSetField sets a named per-row field (label, weight, init_score,
// group) on a dataset. The call is a pass-through: data and the dtype tag
// are forwarded unchanged after the tag is checked against the payload's
// actual element type and n against its length. Semantic validation (field
// length versus row count) is the engine's.
func DatasetSetField(handle DatasetHandle, field string, data interface{}, n int32, dtype int32) int32 {
	dataset, err := fetchDataset(handle)
	if err != nil {
		return fail(err)
	}
	if err := checkFieldPayload(data, n, dtype); err != nil {
		return fail(err)
	}
	if err := dataset.SetField(field, data); err != nil {
		return fail(err)
	}
	return StatusOK
}

func checkFieldPayload(data interface{}, n int32, dtype int32) error {
	var length int
	var ok bool
	switch dtype {
	case DtypeFloat32:
		var v []float32
		if v, ok = data.([]float32); ok {
			length = len(v)
		}
	case DtypeFloat64:
		var v []float64
		if v, ok = data.([]float64); ok {
			length = len(v)
		}
	case DtypeInt32:
		var v []int32
		if v, ok = data.([]int32); ok {
			length = len(v)
		}
	case DtypeInt64:
		var v []int64
		if v, ok = data.([]int64); ok {
			length = len(v)
		}
	default:
		return scierr.NewValidationError("dtype", "unknown element type tag", dtype)
	}
	if !ok {
		return scierr.NewValidationError("dtype", "type tag does not match payload element type", dtype)
	}
	if length != int(n) {
		return scierr.NewDimensionError("DatasetSetField", int(n), length, 0)
	}
	return nil
}

// DatasetFree releases a dataset handle. Releasing an already-released
// handle fails with an invalid-handle error.
func DatasetFree(handle DatasetHandle) int32 {
	if err := releaseDataset(handle); err != nil {
		return fail(err)
	}
	return StatusOK
}

// BoosterCreate creates a booster at iteration zero from a dataset and a
// configuration string. The dataset is only required to outlive this call.
func BoosterCreate(trainData DatasetHandle, params string, out *BoosterHandle) int32 {
	if out == nil {
		return fail(scierr.NewValueError("BoosterCreate", "out handle is nil"))
	}
	dataset, err := fetchDataset(trainData)
	if err != nil {
		return fail(err)
	}
	booster, err := lightgbm.NewBooster(dataset, params)
	if err != nil {
		return fail(err)
	}
	*out = storeBooster(booster)
	return StatusOK
}

// BoosterUpdateOneIter runs one boosting iteration. isFinished receives 1
// when training has converged under the configured stopping criteria,
// else 0.
func BoosterUpdateOneIter(handle BoosterHandle, isFinished *int32) int32 {
	booster, err := fetchBooster(handle)
	if err != nil {
		return fail(err)
	}
	finished, err := booster.UpdateOneIter()
	if err != nil {
		return fail(err)
	}
	if isFinished != nil {
		if finished {
			*isFinished = 1
		} else {
			*isFinished = 0
		}
	}
	return StatusOK
}

// BoosterGetNumClasses writes the number of predicted classes to out
// (1 for regression and binary classification).
func BoosterGetNumClasses(handle BoosterHandle, out *int32) int32 {
	booster, err := fetchBooster(handle)
	if err != nil {
		return fail(err)
	}
	n, err := narrowLen("BoosterGetNumClasses", int64(booster.NumClasses()))
	if err != nil {
		return fail(err)
	}
	if out != nil {
		*out = n
	}
	return StatusOK
}

// BoosterFree releases a booster handle. Releasing an already-released
// handle fails with an invalid-handle error.
func BoosterFree(handle BoosterHandle) int32 {
	if err := releaseBooster(handle); err != nil {
		return fail(err)
	}
	return StatusOK
}

// BoosterPredictForMat predicts for a row-major dense float32 matrix.
// Scoring starts at iteration zero; numIteration of zero or less uses all
// iterations. outResult must be pre-allocated according to the engine's
// sizing rule for the predict type; outLen receives the number of elements
// written. A result count that does not fit in an int32 fails the call.
func BoosterPredictForMat(handle BoosterHandle, data []float32, nrow, ncol int32,
	predictType int32, numIteration int32, params string, outLen *int32, outResult []float64) int32 {

	booster, err := fetchBooster(handle)
	if err != nil {
		return fail(err)
	}
	result, err := booster.PredictForMat(data, int(nrow), int(ncol), int(predictType), int(numIteration), params)
	if err != nil {
		return fail(err)
	}
	n, err := narrowLen("BoosterPredictForMat", int64(len(result)))
	if err != nil {
		return fail(err)
	}
	if len(outResult) < len(result) {
		return fail(scierr.NewDimensionError("BoosterPredictForMat", len(result), len(outResult), 0))
	}
	copy(outResult, result)
	if outLen != nil {
		*outLen = n
	}
	return StatusOK
}

// BoosterSaveModelToString serializes the full model (start iteration 0,
// all iterations, split feature importance) into outStr as NUL-terminated
// text. outLen always receives the required length including the NUL
// terminator; content is written only when bufferLen is large enough, so a
// first call with a zero-length buffer measures the allocation size.
func BoosterSaveModelToString(handle BoosterHandle, bufferLen int32, outLen *int32, outStr []byte) int32 {
	booster, err := fetchBooster(handle)
	if err != nil {
		return fail(err)
	}
	model := booster.SaveModelToString()
	required, err := narrowLen("BoosterSaveModelToString", int64(len(model))+1)
	if err != nil {
		return fail(err)
	}
	if outLen != nil {
		*outLen = required
	}
	writable := len(outStr)
	if int(bufferLen) < writable {
		writable = int(bufferLen)
	}
	if writable >= int(required) {
		copy(outStr, model)
		outStr[len(model)] = 0
	}
	return StatusOK
}

// BoosterLoadModelFromString reconstructs a booster from NUL-terminated
// model text. outNumIterations receives the number of boosting iterations
// recovered from the text.
func BoosterLoadModelFromString(modelStr string, outNumIterations *int32, out *BoosterHandle) int32 {
	if out == nil {
		return fail(scierr.NewValueError("BoosterLoadModelFromString", "out handle is nil"))
	}
	if i := strings.IndexByte(modelStr, 0); i >= 0 {
		modelStr = modelStr[:i]
	}
	booster, err := lightgbm.LoadModelFromString(modelStr)
	if err != nil {
		return fail(err)
	}
	iters, err := narrowLen("BoosterLoadModelFromString", int64(booster.NumIterations()))
	if err != nil {
		return fail(err)
	}
	if outNumIterations != nil {
		*outNumIterations = iters
	}
	*out = storeBooster(booster)
	return StatusOK
}
