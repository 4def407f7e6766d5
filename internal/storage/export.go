package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/breathsim/internal/config"
	"github.com/san-kum/breathsim/internal/experiment"
)

type ExportData struct {
	Config   config.Config      `json:"config"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	Field    [][]float64        `json:"field"`
	Velocity [][]float64        `json:"velocity,omitempty"`
	Metrics  map[string]float64 `json:"metrics"`
}

// ExportJSON writes the whole result as one indented JSON document.
func ExportJSON(w io.Writer, res *experiment.Result) error {
	data := ExportData{
		Config:   *res.Config,
		Steps:    res.Stats.Steps,
		Times:    res.Times,
		Field:    res.Field,
		Velocity: res.Velocity,
		Metrics:  res.Metrics,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
