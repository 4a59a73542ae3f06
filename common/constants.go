package common

const (
	ProjectFileName      = "tsgen.toml"
	GrammarFileExtension = ".grammar"
	TableFileExtension   = ".ptable"
	Version              = "0.1.0"
)
