package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// sink is the output shared by a logger and all of its named children.
type sink struct {
	mu      sync.Mutex
	stdout  io.Writer
	stderr  io.Writer
	fileLog *os.File
	live    bool
}

// Logger writes leveled printf-style messages to the console and, when
// configured, to a log file. Console output is muted while a live status
// display owns the terminal; the file still receives everything.
type Logger struct {
	Verbose bool
	name    string
	out     *sink
}

// New creates a new Logger instance
func New(verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		out:     &sink{stdout: os.Stdout, stderr: os.Stderr},
	}
}

// Named returns a child logger that prefixes messages with name and shares
// this logger's outputs.
func (l *Logger) Named(name string) *Logger {
	child := *l
	if l.name != "" {
		child.name = l.name + "." + name
	} else {
		child.name = name
	}
	return &child
}

// SetOutput redirects console output. Used by tests and the web server.
func (l *Logger) SetOutput(stdout, stderr io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.stdout = stdout
	l.out.stderr = stderr
}

// SetFileLog enables logging to a file
func (l *Logger) SetFileLog(path string) error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.out.fileLog = f
	return nil
}

// SetLiveDisplay indicates that per-worker status lines are being drawn.
func (l *Logger) SetLiveDisplay(active bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.live = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.fileLog != nil {
		err := l.out.fileLog.Close()
		l.out.fileLog = nil
		return err
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log("INFO", format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log("DEBUG", format, args...)
	} else {
		// Always log debug to file even in non-verbose mode
		l.logToFile("DEBUG", format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log("WARN", format, args...)
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	msg := l.format("ERROR", format, args...)
	fmt.Fprint(l.out.stderr, msg)
	l.writeFile(msg)
}

func (l *Logger) log(level, format string, args ...interface{}) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	msg := l.format(level, format, args...)

	// Status lines own stdout unless we're verbose
	if l.Verbose || !l.out.live {
		fmt.Fprint(l.out.stdout, msg)
	}
	l.writeFile(msg)
}

func (l *Logger) logToFile(level, format string, args ...interface{}) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.writeFile(l.format(level, format, args...))
}

func (l *Logger) format(level, format string, args ...interface{}) string {
	body := fmt.Sprintf(format, args...)
	if l.name != "" {
		body = l.name + ": " + body
	}
	if level == "INFO" {
		return body + "\n"
	}
	return "[" + level + "] " + body + "\n"
}

// writeFile appends a timestamped copy of msg to the file log. Caller holds the lock.
func (l *Logger) writeFile(msg string) {
	if l.out.fileLog != nil {
		l.out.fileLog.WriteString(time.Now().Format("15:04:05.000") + " " + msg)
	}
}
