package cli

type globalOptions struct {
	ConfigPath string
	Bucket     string
	Prefix     string
	Cutoff     string
	LogLevel   string
}

type sweepOptions struct {
	Download    bool
	Delete      bool
	DownloadDir string
	ExportDir   string
	DryRun      bool
	BatchSize   int
	Show        bool
}
