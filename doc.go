// Package lgbridge provides a pure-Go gradient boosting engine together
// with a narrow, C-API-shaped boundary layer for hosting it behind
// foreign-function or 32-bit callers.
//
// The module is organized into several packages:
//
//   - capi: the boundary surface. Handle-based resource management,
//     int32 lengths and status codes, float32 matrix payloads, float64
//     results, and a last-error query. Lengths that do not fit in an
//     int32 fail the call instead of being truncated.
//   - lightgbm: the engine. Datasets, boosters, depth-wise tree growth,
//     regression / binary / multiclass objectives, four predict modes,
//     and LightGBM-compatible model text serialization.
//   - metrics: regression evaluation metrics (MSE, RMSE, MAE).
//   - pkg/errors: typed errors with stack traces, built on
//     cockroachdb/errors.
//   - pkg/log: slog setup with structured stack trace output.
//
// # Quick Start
//
// Training and predicting through the boundary surface:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/shiroyagi-lab/lgbridge/capi"
//	)
//
//	func main() {
//	    data := []float32{1, 2, 3, 4, 5, 6}
//	    labels := []float32{1.0, 2.0, 3.0}
//
//	    var dataset capi.DatasetHandle
//	    if capi.DatasetCreateFromMat(data, 3, 2, "", &dataset) != 0 {
//	        log.Fatal(capi.GetLastError())
//	    }
//	    defer capi.DatasetFree(dataset)
//	    capi.DatasetSetField(dataset, "label", labels, 3, capi.DtypeFloat32)
//
//	    var booster capi.BoosterHandle
//	    if capi.BoosterCreate(dataset, "objective=regression", &booster) != 0 {
//	        log.Fatal(capi.GetLastError())
//	    }
//	    defer capi.BoosterFree(booster)
//
//	    var finished int32
//	    for i := 0; i < 10 && finished == 0; i++ {
//	        capi.BoosterUpdateOneIter(booster, &finished)
//	    }
//
//	    out := make([]float64, 3)
//	    var outLen int32
//	    capi.BoosterPredictForMat(booster, data, 3, 2,
//	        capi.PredictNormal, 0, "", &outLen, out)
//	    fmt.Println(out[:outLen])
//	}
//
// Go callers that do not need the boundary conventions can use the
// lightgbm package directly.
package lgbridge
