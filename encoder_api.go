package iriscodec

import (
	"github.com/IrisDigitalPathology/iris-codec/cache"
	"github.com/IrisDigitalPathology/iris-codec/encoder"
	"github.com/IrisDigitalPathology/iris-codec/iris"
)

// CreateEncoder returns a new encoder in the INACTIVE state. ctx is
// accepted for symmetry with the rest of this package; encoding always
// runs on the CPU regardless of ctx.HasGPU().
func CreateEncoder(ctx *Context, info encoder.Info) (*encoder.Encoder, iris.Result) {
	e, err := encoder.NewEncoder(info)
	if err != nil {
		return nil, iris.NewResult(iris.Failure, "failed to create encoder: %v", err)
	}
	return e, iris.OK
}

// DispatchEncoder starts e's worker pool. It returns once the pipeline has
// started, not once it finishes; poll GetEncoderProgress or call e.Wait.
func DispatchEncoder(e *encoder.Encoder) iris.Result {
	if err := e.Dispatch(); err != nil {
		return iris.NewResult(iris.Failure, "failed to dispatch encoder: %v", err)
	}
	return iris.OK
}

// InterruptEncoder cancels a running encode and blocks until its partial
// output has been torn down.
func InterruptEncoder(e *encoder.Encoder) iris.Result {
	if err := e.Interrupt(); err != nil {
		return iris.NewResult(iris.Failure, "failed to interrupt encoder: %v", err)
	}
	return iris.OK
}

// ResetEncoder returns e to INACTIVE, clearing its source, destination
// path, and queued associated images/annotations.
func ResetEncoder(e *encoder.Encoder) iris.Result {
	if err := e.Reset(); err != nil {
		return iris.NewResult(iris.Failure, "failed to reset encoder: %v", err)
	}
	return iris.OK
}

// GetEncoderProgress returns a snapshot of e's current lifecycle status.
func GetEncoderProgress(e *encoder.Encoder) encoder.Progress {
	return e.Progress()
}

// GetEncoderSrc returns the Source currently installed on e, or nil if none
// has been set yet.
func GetEncoderSrc(e *encoder.Encoder) encoder.Source {
	return e.Source()
}

// SetEncoderSrc installs the pixel-data provider e will read from.
func SetEncoderSrc(e *encoder.Encoder, src encoder.Source) iris.Result {
	if err := e.SetSource(src); err != nil {
		return iris.NewResult(iris.Failure, "failed to set encoder source: %v", err)
	}
	return iris.OK
}

// SetEncoderSrcCache installs a cache.Cache as e's source, reading its
// already-decoded tiles across extent's base layer.
func SetEncoderSrcCache(e *encoder.Encoder, c *cache.Cache, extent iris.Extent, format iris.Format) iris.Result {
	if err := e.SetSourceCache(c, extent, format); err != nil {
		return iris.NewResult(iris.Failure, "failed to set encoder cache source: %v", err)
	}
	return iris.OK
}

// GetEncoderDstPath returns e's currently configured output path.
func GetEncoderDstPath(e *encoder.Encoder) string {
	return e.Progress().DstPath
}

// SetEncoderDstPath changes e's output path.
func SetEncoderDstPath(e *encoder.Encoder, path string) iris.Result {
	if err := e.SetDstPath(path); err != nil {
		return iris.NewResult(iris.Failure, "failed to set encoder destination path: %v", err)
	}
	return iris.OK
}
