package cache

import (
	"context"
	_ "embed"
	"errors"
	"time"
)

// Cache fills race with invalidation: a reader that loaded a row before a
// commit must not store it after that commit's invalidation. Every
// invalidation advances a generation counter first. Readers note the
// generation before loading and only fill the cache if it is unchanged.

//go:embed lua/set_if_generation.lua
var setIfGenerationScript string

//go:embed lua/bump_generations.lua
var bumpGenerationsScript string

const (
	scriptSetIfGeneration = "set_if_generation"
	scriptBumpGenerations = "bump_generations"
)

// Generation returns the current value of genKey, "0" when it was never bumped
func Generation(ctx context.Context, store Store, genKey string) (string, error) {
	raw, err := store.Get(ctx, genKey)
	if errors.Is(err, ErrMiss) {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetIfGeneration stores value under key only while genKey still holds gen.
// It reports whether the value was written.
func SetIfGeneration(ctx context.Context, store Store, genKey, gen, key string, value []byte, ttl time.Duration) (bool, error) {
	keys := []string{genKey, key}
	res, err := store.Eval(ctx, scriptSetIfGeneration, setIfGenerationScript, keys, gen, value, ttl.Milliseconds())
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	return ok && n == 1, nil
}

// BumpGenerations advances every genKey by one
func BumpGenerations(ctx context.Context, store Store, genKeys ...string) error {
	if len(genKeys) == 0 {
		return nil
	}
	_, err := store.Eval(ctx, scriptBumpGenerations, bumpGenerationsScript, genKeys)
	return err
}
