package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hollowgrove/datacrate/datasets"
	"github.com/hollowgrove/datacrate/loaders"
)

var (
	srcDir  = flag.String("i", "./data_src", "path of the original data directory, e.g. ./data_src")
	outPath = flag.String("o", "dataset.dsb", "file name to save the dataset artifact to, e.g. hoge.dsb")

	loaderKind = flag.String("loader", "image", "per-file loader: image or tdms")

	width  = flag.Int("width", 160, "image resize width")
	height = flag.Int("height", 90, "image resize height")
	blur   = flag.Float64("blur", 0, "gaussian blur radius, 0 disables")
	hsv    = flag.Bool("hsv", false, "convert images from RGB to HSV")

	tdmsCount  = flag.Int("tdms-count", 0, "number of values the tdms window extracts")
	tdmsWindow = flag.String("tdms-window", "all", "tdms window: all, head, middle, tail or a start offset")

	plotPath = flag.String("plot", "", "optional path for a class-distribution chart (png)")
)

// ext is registered under both spellings the tool has always accepted.
var ext string

func init() {
	flag.StringVar(&ext, "e", "jpg", "extension of the original data files, e.g. jpg")
	flag.StringVar(&ext, "ext", "jpg", "extension of the original data files (same as -e)")
}

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var loader loaders.Loader
	switch *loaderKind {
	case "image":
		loader = loaders.NewImageLoader(loaders.ImageConfig{
			Width:      *width,
			Height:     *height,
			BlurRadius: *blur,
			HSV:        *hsv,
		})
	case "tdms":
		loader = loaders.NewTDMSLoader(loaders.TDMSConfig{
			Count:  *tdmsCount,
			Window: *tdmsWindow,
		})
	default:
		log.Fatal().Str("loader", *loaderKind).Msg("unknown loader, want image or tdms")
	}

	ctx := loaders.NewContext(loader, ext)
	maker := datasets.NewMaker(ctx, *srcDir)

	log.Info().Str("src", *srcDir).Str("ext", ctx.Extension()).Str("out", *outPath).Msg("building dataset")
	if err := maker.CreateAndSaveDataSet(*outPath); err != nil {
		log.Fatal().Err(err).Msg("dataset build failed")
	}

	// reload through the artifact to confirm what actually landed on disk
	b, err := datasets.NewBundleLoader(*outPath).Load(datasets.LoadOptions{OneHotLabel: true})
	if err != nil {
		log.Fatal().Err(err).Str("artifact", *outPath).Msg("could not reload artifact")
	}

	sum := datasets.Summarize(b)
	log.Info().
		Ints("data_shape", b.DataShape).
		Ints("target_shape", b.TargetShape).
		Strs("target_names", b.TargetNames).
		Ints("class_counts", sum.ClassCounts).
		Float64("feature_mean", sum.FeatureMean).
		Float64("feature_std", sum.FeatureStd).
		Msg("dataset saved")

	if *plotPath != "" {
		if err := plotClassCounts(sum, b.TargetNames, *plotPath); err != nil {
			log.Fatal().Err(err).Str("plot", *plotPath).Msg("could not write class chart")
		}
		log.Info().Str("plot", *plotPath).Msg("class chart written")
	}
}

// plotClassCounts renders a bar chart of examples per class.
func plotClassCounts(sum datasets.Summary, names []string, path string) error {
	p := plot.New()
	p.Title.Text = "examples per class"
	p.Y.Label.Text = "examples"

	vals := make(plotter.Values, len(sum.ClassCounts))
	for i, c := range sum.ClassCounts {
		vals[i] = float64(c)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(24))
	if err != nil {
		return err
	}
	p.Add(bars)
	p.NominalX(names...)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
