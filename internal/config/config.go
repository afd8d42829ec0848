package config

import "time"

type AppConfig struct {
	Port            int
	CommandEndpoint string
	PublishEndpoint string

	Source         string
	SourceEndpoint string
	ReplayDir      string
	Device         int
	Width          int
	Height         int
	FrameInterval  time.Duration
	AcquireTimeout time.Duration
	Workers        int
	Threaded       bool

	CamerasFile    string
	SelectedCamera string

	OutputDir     string
	FileTemplate  string
	FFmpegPath    string
	DefaultCount  int
	RawLogEnabled bool
	RawLogDir     string

	UIRate         time.Duration
	PVGateway      string
	PVPollInterval time.Duration
	SwitcherPorts  []string
	SwitcherBaud   int
	IngestLogEvery int

	UseStd       bool
	BeamOnly     bool
	FitGaussians bool
	OutputToPV   bool
	AutoMove     bool
	PostProcess  string
}
