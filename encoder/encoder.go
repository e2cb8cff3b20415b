// Package encoder implements the multithreaded pipeline that reads a
// source image, derives a full resolution pyramid, compresses every tile,
// and writes a complete IFE container. Its worker pool splits work across
// a shared channel of tile coordinates (work-stealing rather than static
// per-core ranges), and its tile-write path uses a mutex-guarded append
// cursor plus an in-memory offset table finalized on Close.
package encoder

import (
	"errors"
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/IrisDigitalPathology/iris-codec/cache"
	"github.com/IrisDigitalPathology/iris-codec/codec"
	"github.com/IrisDigitalPathology/iris-codec/ife"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/simd"
)

// StagedAssociatedImage is an already-compressed ancillary image (label
// photo, thumbnail, macro view) queued to be written into the destination
// file's associated-image region once the pyramid finishes.
type StagedAssociatedImage struct {
	Label        string
	Width        uint32
	Height       uint32
	Encoding     codec.Encoding
	SourceFormat iris.Format
	Orientation  iris.ImageOrientation
	Data         []byte
}

// StagedAnnotation is an annotation queued to be written into the
// destination file's annotation region alongside the pyramid it describes.
type StagedAnnotation struct {
	ID         iris.AnnotationIdentifier
	Annotation iris.Annotation
}

// State is one of the encoder's explicit lifecycle states.
type State int

const (
	Inactive State = iota
	Active
	Error
	Shutdown
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "INACTIVE"
	case Active:
		return "ACTIVE"
	case Error:
		return "ERROR"
	case Shutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

var (
	ErrEncoderActive   = errors.New("encoder: active, cannot reconfigure")
	ErrEncoderNotReady = errors.New("encoder: no source or destination path set")
	ErrInvalidState    = errors.New("encoder: operation not permitted in current state")
)

// Info carries the tunables Dispatch uses to build the pyramid and select
// a codec. The zero value's DerivationFactor/Encoding are not usable
// directly; NewEncoder fills in the documented defaults.
type Info struct {
	DstPath          string
	DerivationFactor DerivationFactor
	DerivationMethod DerivationMethod
	Encoding         codec.Encoding
	Options          codec.Options
	// Concurrency bounds the worker pool size; zero means runtime.NumCPU().
	Concurrency int
	// Metadata, ICCProfile, AssociatedImages and Annotations are staged
	// alongside the pyramid; Dispatch writes them into the destination file
	// after the last pyramid tile and before the root directory.
	Metadata         ife.Metadata
	ICCProfile       []byte
	AssociatedImages []StagedAssociatedImage
	Annotations      []StagedAnnotation
}

// Progress is a snapshot of the encoder's current lifecycle status.
type Progress struct {
	Status   State
	Fraction float64
	DstPath  string
	ErrorMsg string
}

// Encoder is a shared, mutex-guarded state machine: INACTIVE -> ACTIVE ->
// {INACTIVE, ERROR, SHUTDOWN}. Exactly one Dispatch may be in flight at a
// time; configuration methods are rejected while ACTIVE.
type Encoder struct {
	mu    sync.Mutex
	state State
	info  Info
	src   Source

	errMsg    string
	completed atomic.Uint64
	total     atomic.Uint64
	cancel    atomic.Bool
	done      chan struct{}
}

// NewEncoder validates info and returns a new encoder in the INACTIVE
// state. It does not touch the filesystem until Dispatch.
func NewEncoder(info Info) (*Encoder, error) {
	if info.DerivationFactor == 0 {
		info.DerivationFactor = Derive2xLayers
	}
	if info.Encoding == codec.Undefined {
		info.Encoding = codec.Default
	}
	if info.Options == (codec.Options{}) {
		info.Options = codec.DefaultOptions()
	}
	if info.Concurrency <= 0 {
		info.Concurrency = runtime.NumCPU()
	}
	return &Encoder{state: Inactive, info: info}, nil
}

// SetSource installs the pixel-data provider Dispatch will read from. Only
// permitted while INACTIVE.
func (e *Encoder) SetSource(src Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.src = src
	return nil
}

// SetSourceCache installs a cache.Cache as the source, reading its
// already-decoded tiles in row-major order across the given extent's base
// layer rather than an arbitrary pixel rectangle — a cache has no "read an
// arbitrary rectangle" operation, only per-tile entries.
func (e *Encoder) SetSourceCache(c *cache.Cache, extent iris.Extent, format iris.Format) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.src = &cacheSource{cache: c, extent: extent, format: format}
	return nil
}

// Source returns the currently installed Source, or nil if none has been
// set yet.
func (e *Encoder) Source() Source {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

// StageAssociatedImage queues an associated image to be written after the
// pyramid on the next Dispatch. Only permitted while INACTIVE.
func (e *Encoder) StageAssociatedImage(img StagedAssociatedImage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.info.AssociatedImages = append(e.info.AssociatedImages, img)
	return nil
}

// StageAnnotation queues an annotation to be written after the pyramid on
// the next Dispatch. Only permitted while INACTIVE.
func (e *Encoder) StageAnnotation(a StagedAnnotation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.info.Annotations = append(e.info.Annotations, a)
	return nil
}

// SetDstPath changes the output file path. Only permitted while INACTIVE.
func (e *Encoder) SetDstPath(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Inactive {
		return ErrEncoderActive
	}
	e.info.DstPath = path
	return nil
}

// Reset returns the encoder to INACTIVE from INACTIVE, ERROR, or SHUTDOWN,
// clearing the source and destination path.
func (e *Encoder) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == Active {
		return ErrInvalidState
	}
	e.state = Inactive
	e.src = nil
	e.info.DstPath = ""
	e.info.AssociatedImages = nil
	e.info.Annotations = nil
	e.errMsg = ""
	e.completed.Store(0)
	e.total.Store(0)
	return nil
}

// Progress returns a snapshot of the encoder's current status.
func (e *Encoder) Progress() Progress {
	e.mu.Lock()
	status := e.state
	dst := e.info.DstPath
	msg := e.errMsg
	e.mu.Unlock()

	total := e.total.Load()
	var frac float64
	if total > 0 {
		frac = float64(e.completed.Load()) / float64(total)
	}
	return Progress{Status: status, Fraction: frac, DstPath: dst, ErrorMsg: msg}
}

// Dispatch transitions INACTIVE -> ACTIVE and launches the worker pool.
// It returns once the pipeline has started, not once it finishes; poll
// Progress or use Wait to block for completion.
func (e *Encoder) Dispatch() error {
	e.mu.Lock()
	if e.state != Inactive {
		e.mu.Unlock()
		return ErrEncoderActive
	}
	if e.src == nil || e.info.DstPath == "" {
		e.mu.Unlock()
		return ErrEncoderNotReady
	}
	e.state = Active
	e.cancel.Store(false)
	e.completed.Store(0)
	e.done = make(chan struct{})
	e.mu.Unlock()

	go e.run()
	return nil
}

// Wait blocks until a dispatched run completes (successfully, with an
// error, or via Interrupt).
func (e *Encoder) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Interrupt sets the cooperative cancel flag workers observe at tile
// boundaries and blocks until the run loop has torn down and deleted the
// partial output file, leaving the encoder in SHUTDOWN.
func (e *Encoder) Interrupt() error {
	e.mu.Lock()
	if e.state != Active {
		e.mu.Unlock()
		return ErrInvalidState
	}
	e.mu.Unlock()

	e.cancel.Store(true)
	e.Wait()
	return nil
}

func (e *Encoder) fail(msg string) {
	e.mu.Lock()
	e.state = Error
	e.errMsg = msg
	e.mu.Unlock()
}

func (e *Encoder) run() {
	defer close(e.done)

	width, height := e.src.Dimensions()
	layers := planPyramid(width, height, e.info.DerivationFactor)
	workingFormat := e.src.Format()

	var total uint64
	for _, l := range layers {
		total += uint64(l.XTiles) * uint64(l.YTiles)
	}
	e.total.Store(total)

	extent := iris.Extent{Width: width, Height: height, Layers: layers}

	f, err := os.Create(e.info.DstPath)
	if err != nil {
		e.fail(err.Error())
		return
	}
	writer, err := ife.NewWriter(f, extent, workingFormat, e.info.Encoding)
	if err != nil {
		f.Close()
		os.Remove(e.info.DstPath)
		e.fail(err.Error())
		return
	}

	var writerMu sync.Mutex
	channels := workingFormat.Channels()

	// The source provides full-resolution pixels, which land at the last
	// (highest-resolution) layer index; every coarser layer is derived by
	// downsampling from the one above it, walking back down to layer 0.
	baseIdx := len(layers) - 1
	fineTiles, err := e.encodeBaseLayer(baseIdx, layers[baseIdx], writer, &writerMu, workingFormat)
	if err != nil {
		f.Close()
		os.Remove(e.info.DstPath)
		if e.cancel.Load() {
			e.mu.Lock()
			e.state = Shutdown
			e.mu.Unlock()
			return
		}
		e.fail(err.Error())
		return
	}

	for layerIdx := baseIdx - 1; layerIdx >= 0; layerIdx-- {
		fineTiles, err = e.deriveLayer(layerIdx, layers[layerIdx+1], layers[layerIdx], fineTiles, channels, writer, &writerMu, workingFormat)
		if err != nil {
			f.Close()
			os.Remove(e.info.DstPath)
			if e.cancel.Load() {
				e.mu.Lock()
				e.state = Shutdown
				e.mu.Unlock()
				return
			}
			e.fail(err.Error())
			return
		}
	}

	if e.info.Metadata.Attributes != nil || e.info.Metadata.MicronsPerPixel != 0 || e.info.Metadata.Magnification != 0 {
		writer.SetMetadata(e.info.Metadata)
	}
	for _, img := range e.info.AssociatedImages {
		if err := writer.WriteAssociatedImage(img.Label, img.Width, img.Height, img.Encoding, img.SourceFormat, img.Orientation, img.Data); err != nil {
			f.Close()
			os.Remove(e.info.DstPath)
			e.fail(err.Error())
			return
		}
	}
	for _, a := range e.info.Annotations {
		if err := writer.WriteAnnotation(a.ID, a.Annotation); err != nil {
			f.Close()
			os.Remove(e.info.DstPath)
			e.fail(err.Error())
			return
		}
	}
	if len(e.info.ICCProfile) > 0 {
		if err := writer.WriteICCProfile(e.info.ICCProfile); err != nil {
			f.Close()
			os.Remove(e.info.DstPath)
			e.fail(err.Error())
			return
		}
	}

	if err := writer.Close(); err != nil {
		f.Close()
		os.Remove(e.info.DstPath)
		e.fail(err.Error())
		return
	}
	f.Close()

	e.mu.Lock()
	e.state = Inactive
	e.mu.Unlock()
}

var errCanceled = errors.New("encoder: interrupted")

// encodeBaseLayer reads every tile of the finest pyramid layer from the
// source, compresses it, writes it at layerIdx, and returns the decoded
// (pre-compress) pixel bytes keyed by tile index so deriveLayer can
// downsample from them without rereading the source.
func (e *Encoder) encodeBaseLayer(layerIdx int, layer iris.LayerExtent, writer *ife.Writer, writerMu *sync.Mutex, format iris.Format) (map[uint32][]byte, error) {
	total := int(layer.XTiles) * int(layer.YTiles)
	tiles := make(map[uint32][]byte, total)
	var tilesMu sync.Mutex

	work := func(idx int) error {
		if e.cancel.Load() {
			return errCanceled
		}
		tileX := uint32(idx) % layer.XTiles
		tileY := uint32(idx) / layer.XTiles
		x := tileX * iris.TilePixLength
		y := tileY * iris.TilePixLength

		pixels, err := e.src.ReadRegion(x, y, iris.TilePixLength, iris.TilePixLength)
		if err != nil {
			return err
		}
		converted, err := simd.ConvertTileFormat(pixels, e.src.Format(), format, nil)
		if err != nil {
			return err
		}

		compressed, err := codec.Compress(e.info.Encoding, converted, iris.TilePixLength, iris.TilePixLength, format, e.info.Options)
		if err != nil {
			return err
		}

		writerMu.Lock()
		err = writer.WriteTile(layerIdx, idx, compressed)
		writerMu.Unlock()
		if err != nil {
			return err
		}

		tilesMu.Lock()
		tiles[uint32(idx)] = converted
		tilesMu.Unlock()

		e.completed.Add(1)
		return nil
	}

	if err := e.runPool(total, work); err != nil {
		return nil, err
	}
	return tiles, nil
}

// deriveLayer builds every tile of one coarser pyramid layer from the
// already-decoded tiles of the layer immediately finer than it, combining
// groups of factor x factor sibling tiles into each destination tile via
// the configured downsample kernel.
func (e *Encoder) deriveLayer(layerIdx int, fine, coarse iris.LayerExtent, fineTiles map[uint32][]byte, channels int, writer *ife.Writer, writerMu *sync.Mutex, format iris.Format) (map[uint32][]byte, error) {
	factor := int(e.info.DerivationFactor)
	total := int(coarse.XTiles) * int(coarse.YTiles)
	coarseTiles := make(map[uint32][]byte, total)
	var tilesMu sync.Mutex
	blank := make([]byte, iris.TilePixLength*iris.TilePixLength*channels)

	work := func(idx int) error {
		if e.cancel.Load() {
			return errCanceled
		}
		groupX := uint32(idx) % coarse.XTiles
		groupY := uint32(idx) / coarse.XTiles

		dst := make([]byte, iris.TilePixLength*iris.TilePixLength*channels)
		for sy := 0; sy < factor; sy++ {
			for sx := 0; sx < factor; sx++ {
				fineX := groupX*uint32(factor) + uint32(sx)
				fineY := groupY*uint32(factor) + uint32(sy)
				src := blank
				if fineX < fine.XTiles && fineY < fine.YTiles {
					if t, ok := fineTiles[fineY*fine.XTiles+fineX]; ok {
						src = t
					}
				}
				if err := downsampleInto(src, dst, uint16(sy), uint16(sx), channels, factor, e.info.DerivationMethod); err != nil {
					return err
				}
			}
		}

		compressed, err := codec.Compress(e.info.Encoding, dst, iris.TilePixLength, iris.TilePixLength, format, e.info.Options)
		if err != nil {
			return err
		}

		writerMu.Lock()
		err = writer.WriteTile(layerIdx, idx, compressed)
		writerMu.Unlock()
		if err != nil {
			return err
		}

		tilesMu.Lock()
		coarseTiles[uint32(idx)] = dst
		tilesMu.Unlock()

		e.completed.Add(1)
		return nil
	}

	if err := e.runPool(total, work); err != nil {
		return nil, err
	}
	return coarseTiles, nil
}

func downsampleInto(src, dst []byte, subY, subX uint16, channels, factor int, method DerivationMethod) error {
	switch {
	case factor == 2 && method == DownsampleAverage:
		return simd.DownsampleIntoTile2xAvg(src, dst, subY, subX, channels)
	case factor == 2 && method == DownsampleSharpen:
		return simd.DownsampleIntoTile2xSharp(src, dst, subY, subX, channels)
	case factor == 4 && method == DownsampleAverage:
		return simd.DownsampleIntoTile4xAvg(src, dst, subY, subX, channels)
	case factor == 4 && method == DownsampleSharpen:
		return simd.DownsampleIntoTile4xSharp(src, dst, subY, subX, channels)
	default:
		return errors.New("encoder: unsupported derivation factor/method combination")
	}
}

// runPool runs work(0), work(1), ..., work(total-1) across a bounded
// worker pool, each worker pulling the next index from a shared channel —
// a work-stealing FIFO, since any idle worker takes whatever's next
// regardless of which worker finished it. The first error any worker
// returns is recorded and returned once every worker has drained.
func (e *Encoder) runPool(total int, work func(idx int) error) error {
	if total == 0 {
		return nil
	}
	items := make(chan int, total)
	for i := 0; i < total; i++ {
		items <- i
	}
	close(items)

	workers := e.info.Concurrency
	if workers > total {
		workers = total
	}

	var wg sync.WaitGroup
	var firstErr atomic.Pointer[error]
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range items {
				if err := work(idx); err != nil {
					firstErr.CompareAndSwap(nil, &err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if p := firstErr.Load(); p != nil {
		return *p
	}
	return nil
}

// cacheSource adapts a cache.Cache's stored tiles into a Source over the
// full-resolution base layer of extent (the last layer, per IFE's
// coarsest-to-finest layer ordering), for encoding straight from staged
// cache entries rather than re-reading a vendor source.
type cacheSource struct {
	cache  *cache.Cache
	extent iris.Extent
	format iris.Format
}

func (c *cacheSource) Dimensions() (uint32, uint32) { return c.extent.Width, c.extent.Height }
func (c *cacheSource) Format() iris.Format           { return c.format }

func (c *cacheSource) ReadRegion(x, y, width, height uint32) ([]byte, error) {
	if len(c.extent.Layers) == 0 {
		return nil, errors.New("encoder: cache source has no base layer extent")
	}
	baseIdx := len(c.extent.Layers) - 1
	base := c.extent.Layers[baseIdx]
	tileX := x / iris.TilePixLength
	tileY := y / iris.TilePixLength
	idx := int(tileY*base.XTiles + tileX)
	return c.cache.ReadEntry(baseIdx, idx, c.format, cache.DecompressTile)
}
