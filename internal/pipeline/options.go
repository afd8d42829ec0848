package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benshep/imageViewer2/internal/config"
	"github.com/benshep/imageViewer2/internal/processing"
)

// Options are the run-time toggles of a session.
type Options struct {
	Live        bool                   `json:"live"`
	Threaded    bool                   `json:"threaded"`
	Reduction   processing.Reduction   `json:"-"`
	BeamOnly    bool                   `json:"beam_only"`
	PostProcess processing.PostProcess `json:"-"`
	Fit         bool                   `json:"fit_gaussians"`
	Publish     bool                   `json:"output_to_pv"`
	AutoMove    bool                   `json:"auto_move"`
}

func OptionsFromConfig(cfg config.AppConfig) (Options, error) {
	post, err := processing.ParsePostProcess(cfg.PostProcess)
	if err != nil {
		return Options{}, err
	}
	reduction := processing.Sum
	if cfg.UseStd {
		reduction = processing.Std
	}
	return Options{
		Live:        true,
		Threaded:    cfg.Threaded,
		Reduction:   reduction,
		BeamOnly:    cfg.BeamOnly,
		PostProcess: post,
		Fit:         cfg.FitGaussians,
		Publish:     cfg.OutputToPV,
		AutoMove:    cfg.AutoMove,
	}, nil
}

// Map is the options as reported on the status endpoint.
func (o Options) Map() map[string]any {
	return map[string]any{
		"live":          o.Live,
		"threaded":      o.Threaded,
		"reduction":     o.Reduction.String(),
		"beam_only":     o.BeamOnly,
		"post_process":  o.PostProcess.String(),
		"fit_gaussians": o.Fit,
		"output_to_pv":  o.Publish,
		"auto_move":     o.AutoMove,
	}
}

// ApplyOption sets one option by name, as sent by the web console.
func ApplyOption(o *Options, name, value string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "reduction":
		r, err := processing.ParseReduction(value)
		if err != nil {
			return err
		}
		o.Reduction = r
		return nil
	case "post_process":
		p, err := processing.ParsePostProcess(value)
		if err != nil {
			return err
		}
		o.PostProcess = p
		return nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("option %s: %w", name, err)
	}
	switch name {
	case "live":
		o.Live = b
	case "threaded":
		o.Threaded = b
	case "use_std":
		o.Reduction = processing.Sum
		if b {
			o.Reduction = processing.Std
		}
	case "beam_only":
		o.BeamOnly = b
	case "fit_gaussians":
		o.Fit = b
	case "output_to_pv":
		o.Publish = b
	case "auto_move":
		o.AutoMove = b
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	return nil
}
