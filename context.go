// Package iriscodec is the root entry point tying together the container
// format (package ife), pixel codecs (package codec), the read path
// (package slide), the scratch cache (package cache) and the encoder
// (package encoder) behind the handful of top-level calls a caller outside
// this module actually needs: open or validate a slide, read a tile,
// annotate it, encode a new one.
package iriscodec

// GPUDevice is an opaque handle to a hardware decode path. Nothing in this
// module implements one; it exists so a caller embedding this package
// alongside a real GPU decoder can pass its device handle through Context
// without this package needing to know anything about it.
type GPUDevice struct {
	Name string
}

// Context selects which codec path Slide and Encoder operations use: CPU
// only, or CPU with a GPU device available for codecs that can use one
// (currently none - AVIF decode requires GPU hardware this module does not
// provide, so a Context with a device still falls back to the CPU codec
// table for every encoding, same as a Context without one). It holds no
// file state of its own and is safe to share across every Slide, Cache, and
// Encoder a caller creates.
type Context struct {
	device *GPUDevice
}

// Create returns a CPU-only Context.
func Create() *Context {
	return &Context{}
}

// CreateWithDevice returns a Context that prefers device for codecs capable
// of using it.
func CreateWithDevice(device *GPUDevice) *Context {
	return &Context{device: device}
}

// HasGPU reports whether ctx carries a GPU device. A nil Context (the zero
// value a caller gets by not calling Create at all) behaves as CPU-only.
func (ctx *Context) HasGPU() bool {
	return ctx != nil && ctx.device != nil
}
