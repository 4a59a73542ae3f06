package logging

// LogMessage is anything the logger can record and later display
type LogMessage interface {
	isError() bool
	display()
}

// TextPosition is a range of source text in a grammar file.  Lines are
// numbered from 1 and columns from 0.
type TextPosition struct {
	StartLn, StartCol int
	EndLn, EndCol     int
}

// LogContext identifies the file a grammar message refers to
type LogContext struct {
	FilePath string
}

// Kinds of grammar messages (prefixed LMK)
const (
	LMKSyntax = iota
	LMKRule
	LMKInline
	LMKExternal
	LMKReach
	LMKConflict
)

// GrammarMessage is an error or warning about a user's grammar
type GrammarMessage struct {
	Message  string
	Kind     int
	Position *TextPosition
	Context  *LogContext
	IsError  bool
}

func (gm *GrammarMessage) isError() bool {
	return gm.IsError
}

// ConfigError is an error in the project configuration or the environment
type ConfigError struct {
	Kind    string
	Message string
}

func (ce *ConfigError) isError() bool {
	return true
}

// BuildWarning is a non-fatal problem found while building the tables
type BuildWarning struct {
	Kind    string
	Message string
}

func (bw *BuildWarning) isError() bool {
	return false
}
