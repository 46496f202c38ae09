package ecs

import (
	"fmt"

	"cloudtile/internal/services"
)

// Fargate bounds for the task-level overrides cloudtile accepts.
const (
	memoryMin  = 32768
	memoryMax  = 122880
	memoryStep = 8192
	storageMin = 20
	storageMax = 200
)

// ValidateMemory checks a memory override (MiB) against the accepted range
// and increment.
func ValidateMemory(memory int32) error {
	if memory < memoryMin || memory > memoryMax {
		return services.Wrap(services.ErrResourceOverride, "ecs", "validate",
			fmt.Sprintf("memory %d out of range: must be within [%d, %d]", memory, memoryMin, memoryMax), nil)
	}
	if memory%memoryStep != 0 {
		return services.Wrap(services.ErrResourceOverride, "ecs", "validate",
			fmt.Sprintf("memory %d must be a multiple of %d", memory, memoryStep), nil)
	}
	return nil
}

// ValidateStorage checks an ephemeral-storage override (GiB) against the
// accepted range.
func ValidateStorage(storage int32) error {
	if storage < storageMin || storage > storageMax {
		return services.Wrap(services.ErrResourceOverride, "ecs", "validate",
			fmt.Sprintf("storage %d out of range: must be within [%d, %d]", storage, storageMin, storageMax), nil)
	}
	return nil
}
