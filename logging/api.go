package logging

import "fmt"

// logger is a global reference to a shared Logger (created/initialized by the
// CLI, but separated for general usage).  It starts out verbose so that code
// run outside the CLI (eg. tests) can still log.
var logger = newLogger(LogLevelVerbose)

// Initialize initializes the global logger with the provided log level
func Initialize(loglevelname string) {
	logger = newLogger(ParseLogLevel(loglevelname))
}

// ParseLogLevel converts a log level name into one of the enumerated log
// levels.  Everything else (including invalid log levels) is verbose.
func ParseLogLevel(loglevelname string) int {
	switch loglevelname {
	case "silent":
		return LogLevelSilent
	case "error":
		return LogLevelError
	case "warning", "warn":
		return LogLevelWarning
	default:
		return LogLevelVerbose
	}
}

// ShouldProceed indicates whether or not the log module has encountered an errors.
func ShouldProceed() bool {
	logger.m.Lock()
	defer logger.m.Unlock()

	return logger.errorCount == 0
}

// -----------------------------------------------------------------------------
// NOTE: All log functions will only display if the appropriate log level is
// set.  Most log functions will simply fail silently if below their appropriate
// log level.

// LogGrammarError logs an error in the user's grammar
func LogGrammarError(lctx *LogContext, message string, kind int, pos *TextPosition) {
	logger.handleMsg(&GrammarMessage{
		Message:  message,
		Kind:     kind,
		Position: pos,
		Context:  lctx,
		IsError:  true,
	})
}

// LogGrammarWarning logs a warning about the user's grammar (eg. unreachable rules)
func LogGrammarWarning(lctx *LogContext, message string, kind int, pos *TextPosition) {
	logger.handleMsg(&GrammarMessage{
		Message:  message,
		Kind:     kind,
		Position: pos,
		Context:  lctx,
		IsError:  false,
	})
}

// LogConfigError logs an error related to project or generator configuration
func LogConfigError(kind, message string) {
	logger.handleMsg(&ConfigError{Kind: kind, Message: message})
}

// LogBuildWarning logs a warning in the build process
func LogBuildWarning(kind, warning string) {
	logger.handleMsg(&BuildWarning{Kind: kind, Message: warning})
}

// LogFatal logs a fatal error that was not expected: ie. the generator did
// something it wasn't supposed to or was handed input that breaks its
// contract.  It always displays and then panics.
func LogFatal(message string) {
	displayFatalError(message)
	panic(fmt.Sprintf("fatal: %s", message))
}

// -----------------------------------------------------------------------------

// DisplayHeader displays the tool version and the project being built
func DisplayHeader(projectName string) {
	if logger.LogLevel == LogLevelVerbose {
		displayHeader(projectName)
	}
}

// BeginPhase starts a phase spinner if the logger is verbose
func BeginPhase(phase string) {
	if logger.LogLevel == LogLevelVerbose {
		displayBeginPhase(phase)
	}
}

// EndPhase stops the current phase spinner
func EndPhase(success bool) {
	if logger.LogLevel == LogLevelVerbose {
		displayEndPhase(success)
	}
}

// Finish displays all deferred warnings and the closing summary.  It returns
// whether the run was successful.
func Finish() bool {
	warningCount := logger.flushWarnings()
	success := ShouldProceed()

	if logger.LogLevel > LogLevelSilent {
		displayFinished(success, logger.errorCount, warningCount)
	}

	return success
}
