package capi

import (
	"sync"

	"github.com/shiroyagi-lab/lgbridge/lightgbm"
	scierr "github.com/shiroyagi-lab/lgbridge/pkg/errors"
)

// DatasetHandle is an opaque token for an engine-owned dataset.
type DatasetHandle int32

// BoosterHandle is an opaque token for an engine-owned booster.
type BoosterHandle int32

// Handle tokens are issued from monotonically increasing counters and are
// never reused, so a released handle stays invalid for the process
// lifetime.
var (
	registryMu    sync.Mutex
	nextDataset   int32 = 1
	nextBooster   int32 = 1
	datasets            = make(map[DatasetHandle]*lightgbm.Dataset)
	boosters            = make(map[BoosterHandle]*lightgbm.Booster)
)

func storeDataset(d *lightgbm.Dataset) DatasetHandle {
	registryMu.Lock()
	defer registryMu.Unlock()
	handle := DatasetHandle(nextDataset)
	datasets[handle] = d
	nextDataset++
	return handle
}

func fetchDataset(handle DatasetHandle) (*lightgbm.Dataset, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	dataset, ok := datasets[handle]
	if !ok {
		return nil, scierr.Wrapf(scierr.ErrInvalidHandle, "dataset handle %d", handle)
	}
	return dataset, nil
}

func releaseDataset(handle DatasetHandle) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := datasets[handle]; !ok {
		return scierr.Wrapf(scierr.ErrInvalidHandle, "dataset handle %d", handle)
	}
	delete(datasets, handle)
	return nil
}

func storeBooster(b *lightgbm.Booster) BoosterHandle {
	registryMu.Lock()
	defer registryMu.Unlock()
	handle := BoosterHandle(nextBooster)
	boosters[handle] = b
	nextBooster++
	return handle
}

func fetchBooster(handle BoosterHandle) (*lightgbm.Booster, error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	booster, ok := boosters[handle]
	if !ok {
		return nil, scierr.Wrapf(scierr.ErrInvalidHandle, "booster handle %d", handle)
	}
	return booster, nil
}

func releaseBooster(handle BoosterHandle) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := boosters[handle]; !ok {
		return scierr.Wrapf(scierr.ErrInvalidHandle, "booster handle %d", handle)
	}
	delete(boosters, handle)
	return nil
}
