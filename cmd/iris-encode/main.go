// iris-encode builds an IFE pyramid file from a flat source image or from
// an already-published IFE file (re-encoding its base layer under a
// different codec or derivation factor).
//
// Usage:
//
//	iris-encode [-profile=<path>] -src=<path> -dst=<path> [flags]
//
// Options:
//
//	-profile string   YAML profile file with encoding/pyramid defaults
//	-src string       source image (.png, .jpg) or .iris/.ife container
//	-dst string       destination .iris file path
//	-encoding string  iris|jpeg|avif (overrides profile)
//	-quality int      lossy quality 0-100 (overrides profile)
//	-factor int       pyramid derivation factor, 2 or 4 (overrides profile)
//	-concurrency int  worker pool size, 0 means all CPUs (overrides profile)
//	-h, -?, --help    print this message
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/IrisDigitalPathology/iris-codec/encoder"
	"github.com/IrisDigitalPathology/iris-codec/iris"
	"github.com/IrisDigitalPathology/iris-codec/slide"
)

var (
	profilePath string
	srcPath     string
	dstPath     string
	encodingOpt string
	qualityOpt  int
	factorOpt   int
	concurrency int
	showHelp    bool
)

func init() {
	flag.StringVar(&profilePath, "profile", "", "YAML profile file")
	flag.StringVar(&srcPath, "src", "", "source image or .iris file")
	flag.StringVar(&dstPath, "dst", "", "destination .iris file")
	flag.StringVar(&encodingOpt, "encoding", "", "iris|jpeg|avif")
	flag.IntVar(&qualityOpt, "quality", 0, "lossy quality 0-100")
	flag.IntVar(&factorOpt, "factor", 0, "pyramid derivation factor, 2 or 4")
	flag.IntVar(&concurrency, "concurrency", 0, "worker pool size")
	flag.BoolVar(&showHelp, "h", false, "print help message")
	flag.BoolVar(&showHelp, "help", false, "print help message")
	flag.BoolVar(&showHelp, "?", false, "print help message")
}

func main() {
	flag.Parse()
	if showHelp || srcPath == "" || dstPath == "" {
		flag.Usage()
		if showHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	profile, err := LoadProfile(profilePath)
	if err != nil {
		log.Fatalf("iris-encode: %v", err)
	}
	applyOverrides(profile)

	enc, err := profile.ResolveEncoding()
	if err != nil {
		log.Fatalf("iris-encode: %v", err)
	}

	info := encoder.Info{
		DstPath:          dstPath,
		DerivationFactor: profile.DerivationFactor(),
		DerivationMethod: profile.DerivationMethod(),
		Encoding:         enc,
		Options:          profile.Options(),
		Concurrency:      profile.Concurrency,
	}

	e, err := encoder.NewEncoder(info)
	if err != nil {
		log.Fatalf("iris-encode: %v", err)
	}

	if err := installSource(e, srcPath); err != nil {
		log.Fatalf("iris-encode: %v", err)
	}
	if err := e.SetDstPath(dstPath); err != nil {
		log.Fatalf("iris-encode: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		if _, ok := <-sigc; ok {
			log.Println("iris-encode: interrupt received, cancelling")
			_ = e.Interrupt()
		}
	}()

	if err := e.Dispatch(); err != nil {
		log.Fatalf("iris-encode: %v", err)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		<-ticker.C
		p := e.Progress()
		fmt.Fprintf(os.Stderr, "\r%s %5.1f%%", p.Status, p.Fraction*100)
		if p.Status != encoder.Active {
			fmt.Fprintln(os.Stderr)
			if p.Status == encoder.Error {
				log.Fatalf("iris-encode: encode failed: %s", p.ErrorMsg)
			}
			if p.Status == encoder.Shutdown {
				log.Fatal("iris-encode: encode interrupted")
			}
			break
		}
	}

	fmt.Printf("iris-encode: wrote %s\n", dstPath)
}

// applyOverrides layers command-line flags on top of whatever the profile
// file (or its defaults) already set.
func applyOverrides(p *Profile) {
	if encodingOpt != "" {
		p.Encoding.Name = encodingOpt
	}
	if qualityOpt > 0 {
		p.Encoding.Quality = qualityOpt
	}
	if factorOpt != 0 {
		p.Pyramid.Factor = factorOpt
	}
	if concurrency != 0 {
		p.Concurrency = concurrency
	}
}

// installSource picks a Source for e based on srcPath's extension: an
// existing .iris/.ife container re-encodes from its base layer, anything
// else is decoded as a flat image via the stdlib image package.
func installSource(e *encoder.Encoder, path string) error {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".iris") || strings.HasSuffix(lower, ".ife") {
		s, err := slide.Open(path, slide.OpenInfo{})
		if err != nil {
			return err
		}
		return e.SetSourceSlide(path, s)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := uint32(bounds.Dx()), uint32(bounds.Dy())
	pixels := make([]byte, int(width)*int(height)*4)
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			off := (y*bounds.Dx() + x) * 4
			pixels[off+0] = byte(r >> 8)
			pixels[off+1] = byte(g >> 8)
			pixels[off+2] = byte(b >> 8)
			pixels[off+3] = byte(a >> 8)
		}
	}

	return e.SetSource(&encoder.MemorySource{
		Width: width, Height: height,
		PixelFormat: iris.FormatR8G8B8A8,
		Pixels:      pixels,
	})
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-profile=<path>] -src=<path> -dst=<path> [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Build an IFE pyramid file from a flat source image or an existing IFE file.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fmt.Fprintf(os.Stderr, "  -profile string    YAML profile file with encoding/pyramid defaults\n")
		fmt.Fprintf(os.Stderr, "  -src string        source image (.png, .jpg) or .iris/.ife container\n")
		fmt.Fprintf(os.Stderr, "  -dst string        destination .iris file path\n")
		fmt.Fprintf(os.Stderr, "  -encoding string   iris|jpeg|avif (overrides profile)\n")
		fmt.Fprintf(os.Stderr, "  -quality int       lossy quality 0-100 (overrides profile)\n")
		fmt.Fprintf(os.Stderr, "  -factor int        pyramid derivation factor, 2 or 4 (overrides profile)\n")
		fmt.Fprintf(os.Stderr, "  -concurrency int   worker pool size, 0 means all CPUs (overrides profile)\n")
		fmt.Fprintf(os.Stderr, "  -h, -?, --help     print this message\n")
	}
}
