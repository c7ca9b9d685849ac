package observability

// References:
// https://github.com/DataDog/dd-trace-go/blob/main/profiler/profiler.go#L118

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"runtime/pprof"
)

type ProfileType int8

const (
	CPUProfile ProfileType = iota
	MemProfile
)

var errUnknownProfile = errors.New("[observability] unknown profile type")

// StartProfile starts the profile into w. The CPU profile is
// sampled until stop, the heap profile is a snapshot taken on stop.
func StartProfile(typ ProfileType, w io.Writer) (stop func() error, err error) {
	switch typ {
	case CPUProfile:
		if err = pprof.StartCPUProfile(w); err != nil {
			return nil, fmt.Errorf("start cpu profile: %w", err)
		}
		return func() error {
			pprof.StopCPUProfile()
			return nil
		}, nil
	case MemProfile:
		return func() error {
			runtime.GC()
			return pprof.WriteHeapProfile(w)
		}, nil
	default:
	}
	return nil, fmt.Errorf("%w: %d", errUnknownProfile, typ)
}
