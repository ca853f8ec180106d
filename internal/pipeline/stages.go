package pipeline

// Canonical stage names as they appear in the trace log and run ledger.
const (
	StageInventory = "parse_inventory"
	StageExport    = "export_spectra"
	StageSelfCheck = "self_check"
	StageBaseline  = "build_baseline"
)
