// Command lgbridge trains and applies boosting models through the 32-bit
// boundary layer, reading matrices from NumPy .npy files. It doubles as an
// exerciser for the capi package: every engine call goes through the
// narrowed surface a foreign host would use.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/shiroyagi-lab/lgbridge/capi"
	"github.com/shiroyagi-lab/lgbridge/metrics"
	"github.com/shiroyagi-lab/lgbridge/pkg/log"
)

func main() {
	mode := flag.String("mode", "train", "train or predict")
	xPath := flag.String("x", "", "feature matrix, .npy (rows x features)")
	yPath := flag.String("y", "", "label vector, .npy (train mode)")
	modelPath := flag.String("model", "model.txt", "model text file to write (train) or read (predict)")
	outPath := flag.String("out", "predictions.npy", "prediction output, .npy (predict mode)")
	config := flag.String("config", "objective=regression", "engine configuration string (key=value pairs)")
	iterations := flag.Int("iterations", 100, "number of boosting iterations")
	predictType := flag.Int("predict-type", int(capi.PredictNormal), "0=normal 1=raw 2=leaf index 3=contrib")
	logEvery := flag.Int("log-every", 10, "report training RMSE every N iterations")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	log.SetupLogger(*logLevel)

	var err error
	switch *mode {
	case "train":
		err = runTrain(*xPath, *yPath, *modelPath, *config, *iterations, *logEvery)
	case "predict":
		err = runPredict(*xPath, *modelPath, *outPath, int32(*predictType), *config)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		slog.Error("lgbridge failed", log.ErrAttr(err))
		os.Exit(1)
	}
}

func runTrain(xPath, yPath, modelPath, config string, iterations, logEvery int) error {
	data, nrow, ncol, err := readMatrix(xPath)
	if err != nil {
		return err
	}
	labels, labelRows, labelCols, err := readMatrix(yPath)
	if err != nil {
		return err
	}
	if labelCols != 1 {
		return fmt.Errorf("label file %s must be a vector, got %d columns", yPath, labelCols)
	}

	var ds capi.DatasetHandle
	if capi.DatasetCreateFromMat(data, int32(nrow), int32(ncol), config, &ds) != capi.StatusOK {
		return boundaryError("dataset_create")
	}
	defer capi.DatasetFree(ds)

	if capi.DatasetSetField(ds, "label", labels, int32(labelRows), capi.DtypeFloat32) != capi.StatusOK {
		return boundaryError("dataset_set_field")
	}

	var booster capi.BoosterHandle
	if capi.BoosterCreate(ds, config, &booster) != capi.StatusOK {
		return boundaryError("booster_create")
	}
	defer capi.BoosterFree(booster)

	var numClass int32
	if capi.BoosterGetNumClasses(booster, &numClass) != capi.StatusOK {
		return boundaryError("booster_get_num_classes")
	}

	slog.Info("training started",
		log.ComponentKey, "cmd",
		log.RowsKey, nrow,
		log.ColsKey, ncol,
		log.NumClassKey, numClass,
	)

	for iter := 1; iter <= iterations; iter++ {
		var finished int32
		if capi.BoosterUpdateOneIter(booster, &finished) != capi.StatusOK {
			return boundaryError("booster_update")
		}
		if logEvery > 0 && iter%logEvery == 0 {
			if rmse, err := trainRMSE(booster, data, labels, nrow, ncol, numClass); err == nil {
				slog.Info("iteration done", log.IterationKey, iter, "rmse", rmse)
			}
		}
		if finished == 1 {
			slog.Info("training converged", log.IterationKey, iter)
			break
		}
	}

	return saveModel(booster, modelPath)
}

// trainRMSE scores the training matrix and reports fit quality. Only
// meaningful for single-output objectives; multiclass runs skip it.
func trainRMSE(booster capi.BoosterHandle, data, labels []float32, nrow, ncol int, numClass int32) (float64, error) {
	if numClass != 1 {
		return 0, fmt.Errorf("rmse undefined for %d classes", numClass)
	}
	preds := make([]float64, nrow)
	var outLen int32
	if capi.BoosterPredictForMat(booster, data, int32(nrow), int32(ncol),
		capi.PredictNormal, 0, "", &outLen, preds) != capi.StatusOK {
		return 0, boundaryError("booster_predict")
	}
	truth := make([]float64, nrow)
	for i, v := range labels {
		truth[i] = float64(v)
	}
	return metrics.RMSE(truth, preds[:outLen])
}

func saveModel(booster capi.BoosterHandle, modelPath string) error {
	// First call with an empty buffer measures the required size.
	var required int32
	if capi.BoosterSaveModelToString(booster, 0, &required, nil) != capi.StatusOK {
		return boundaryError("booster_save_model")
	}
	buf := make([]byte, required)
	var written int32
	if capi.BoosterSaveModelToString(booster, required, &written, buf) != capi.StatusOK {
		return boundaryError("booster_save_model")
	}
	// Drop the NUL terminator for the on-disk file.
	if err := os.WriteFile(modelPath, buf[:written-1], 0o600); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	slog.Info("model saved", "path", modelPath, "bytes", written-1)
	return nil
}

func runPredict(xPath, modelPath, outPath string, predictType int32, config string) error {
	modelText, err := os.ReadFile(modelPath)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}

	var booster capi.BoosterHandle
	var numIterations int32
	if capi.BoosterLoadModelFromString(string(modelText), &numIterations, &booster) != capi.StatusOK {
		return boundaryError("booster_load_model")
	}
	defer capi.BoosterFree(booster)

	var numClass int32
	if capi.BoosterGetNumClasses(booster, &numClass) != capi.StatusOK {
		return boundaryError("booster_get_num_classes")
	}

	data, nrow, ncol, err := readMatrix(xPath)
	if err != nil {
		return err
	}

	resultSize, err := predictSize(predictType, nrow, ncol, int(numIterations), int(numClass))
	if err != nil {
		return err
	}
	preds := make([]float64, resultSize)
	var outLen int32
	if capi.BoosterPredictForMat(booster, data, int32(nrow), int32(ncol),
		predictType, 0, config, &outLen, preds) != capi.StatusOK {
		return boundaryError("booster_predict")
	}

	slog.Info("prediction done",
		log.RowsKey, nrow,
		log.IterationKey, numIterations,
		"result_elements", outLen,
	)
	return writeMatrix(outPath, preds[:outLen], nrow)
}

// predictSize applies the engine's documented result sizing rule.
func predictSize(predictType int32, nrow, ncol, numIterations, numClass int) (int, error) {
	switch predictType {
	case capi.PredictNormal, capi.PredictRawScore:
		return nrow * numClass, nil
	case capi.PredictLeafIndex:
		return nrow * numIterations * numClass, nil
	case capi.PredictContrib:
		return nrow * numClass * (ncol + 1), nil
	default:
		return 0, fmt.Errorf("unknown predict type %d", predictType)
	}
}

func boundaryError(op string) error {
	return fmt.Errorf("%s: %s", op, capi.GetLastError())
}

// readMatrix loads a .npy file and flattens it to the boundary's row-major
// float32 layout. Vectors are treated as single-column matrices.
func readMatrix(path string) ([]float32, int, int, error) {
	if path == "" {
		return nil, 0, 0, fmt.Errorf("missing input file (see -x/-y)")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read %s: %w", path, err)
	}
	var m mat.Dense
	if err := r.Read(&m); err != nil {
		return nil, 0, 0, fmt.Errorf("read %s: %w", path, err)
	}

	nrow, ncol := m.Dims()
	data := make([]float32, nrow*ncol)
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			data[i*ncol+j] = float32(m.At(i, j))
		}
	}
	return data, nrow, ncol, nil
}

func writeMatrix(path string, values []float64, nrow int) error {
	if nrow == 0 || len(values)%nrow != 0 {
		return fmt.Errorf("cannot shape %d values into %d rows", len(values), nrow)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	m := mat.NewDense(nrow, len(values)/nrow, values)
	if err := npyio.Write(f, m); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
