// Command jpegrtool inspects and repacks gain-map HDR JPEG files.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/jasonmoo/go-butteraugli"
	log "github.com/sirupsen/logrus"

	"github.com/vearutop/jpegr"
	"github.com/vearutop/jpegr/internal/jpegx"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = runInfo(os.Args[2:])
	case "detect":
		err = runDetect(os.Args[2:])
	case "split":
		err = runSplit(os.Args[2:])
	case "join":
		err = runJoin(os.Args[2:])
	case "decode":
		err = runDecode(os.Args[2:])
	case "compare":
		err = runCompare(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: jpegrtool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  info    -in input.jpg")
	fmt.Fprintln(os.Stderr, "  detect  -in input.jpg")
	fmt.Fprintln(os.Stderr, "  split   -in input.jpg -primary-out p.jpg -gainmap-out g.jpg [-meta-out meta.json]")
	fmt.Fprintln(os.Stderr, "  join    -primary p.jpg -gainmap g.jpg -meta meta.json -out output.jpg [-jpegli]")
	fmt.Fprintln(os.Stderr, "  decode  -in input.jpg -out out.png [-boost 4.0] [-debug]")
	fmt.Fprintln(os.Stderr, "  compare -a one.jpg -b two.jpg")
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG-R file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	var info jpegr.Info
	in := &jpegr.CompressedImage{Data: data, Length: len(data)}
	if err := jpegr.New().GetInfo(in, &info); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"width":    info.Width,
		"height":   info.Height,
		"gainmap":  info.HasGainMap,
		"exif_len": len(info.EXIF),
		"icc_len":  len(info.ICC),
	}).Info("container info")
	return nil
}

func runDetect(args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := os.Open(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	defer f.Close()
	ok, err := jpegr.IsJPEGR(f)
	if err != nil {
		return err
	}
	fmt.Println(ok)
	return nil
}

func runSplit(args []string) error {
	fs := flag.NewFlagSet("split", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG-R file")
	primaryOut := fs.String("primary-out", "", "write primary JPEG")
	gainmapOut := fs.String("gainmap-out", "", "write gain-map JPEG")
	metaOut := fs.String("meta-out", "", "write metadata JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *primaryOut == "" || *gainmapOut == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	primary, gainmap, meta, err := jpegr.Split(data)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*primaryOut), primary, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(*gainmapOut), gainmap, 0o644); err != nil {
		return err
	}
	if *metaOut != "" {
		js, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Clean(*metaOut), js, 0o644); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{
		"primary": len(primary),
		"gainmap": len(gainmap),
		"version": meta.Version,
	}).Info("split done")
	return nil
}

func runJoin(args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	primaryPath := fs.String("primary", "", "primary JPEG")
	gainmapPath := fs.String("gainmap", "", "gain-map JPEG")
	metaPath := fs.String("meta", "", "metadata JSON")
	outPath := fs.String("out", "", "output JPEG-R file")
	useJpegli := fs.Bool("jpegli", false, "recompress the gain map with jpegli")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *primaryPath == "" || *gainmapPath == "" || *metaPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	primary, err := os.ReadFile(filepath.Clean(*primaryPath))
	if err != nil {
		return err
	}
	gainmap, err := os.ReadFile(filepath.Clean(*gainmapPath))
	if err != nil {
		return err
	}
	js, err := os.ReadFile(filepath.Clean(*metaPath))
	if err != nil {
		return err
	}
	meta := &jpegr.Metadata{}
	if err := json.Unmarshal(js, meta); err != nil {
		return err
	}
	if *useJpegli {
		codec := jpegx.Jpegli{}
		img, err := codec.Decompress(gainmap)
		if err != nil {
			return err
		}
		if gainmap, err = codec.Compress(img, 85); err != nil {
			return err
		}
	}
	out, err := jpegr.Join(primary, gainmap, meta)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Clean(*outPath), out, 0o644)
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input JPEG-R file")
	outPath := fs.String("out", "", "output PNG preview")
	boost := fs.Float64("boost", 1.0, "maximum display boost")
	debug := fs.Bool("debug", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}
	data, err := os.ReadFile(filepath.Clean(*inPath))
	if err != nil {
		return err
	}
	lin, err := jpegr.New().DecodeHDRImage(data, float32(*boost))
	if err != nil {
		return err
	}
	b := lin.Bounds()
	log.WithFields(log.Fields{"width": b.Dx(), "height": b.Dy(), "boost": *boost}).Debug("decoded")

	// Clamped sRGB preview of the boosted raster.
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := lin.HDRAt(x, y).HDRRGBA()
			out.Set(x, y, toSRGB(r, g, bl))
		}
	}
	f, err := os.Create(filepath.Clean(*outPath))
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	aPath := fs.String("a", "", "first JPEG")
	bPath := fs.String("b", "", "second JPEG")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *aPath == "" || *bPath == "" {
		return errors.New("missing required arguments")
	}
	imgA, err := readJPEG(*aPath)
	if err != nil {
		return err
	}
	imgB, err := readJPEG(*bPath)
	if err != nil {
		return err
	}
	dist, err := butteraugli.CompareImages(imgA, imgB)
	if err != nil {
		return err
	}
	fmt.Printf("butteraugli distance: %.4f\n", dist)
	return nil
}

func toSRGB(r, g, b float64) color.NRGBA {
	enc := func(v float64) uint8 {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		if v <= 0.0031308 {
			v *= 12.92
		} else {
			v = 1.055*math.Pow(v, 1/2.4) - 0.055
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: enc(r), G: enc(g), B: enc(b), A: 255}
}

func readJPEG(path string) (image.Image, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return jpeg.Decode(bytes.NewReader(data))
}
