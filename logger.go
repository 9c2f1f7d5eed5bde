package rweb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strconv"
	"sync"
	"text/template"
	"time"
)

// Logger is used to log information generated at runtime. Every
// subsystem that needs to log (announce filter, correlator, scheduler)
// is handed one *Logger explicitly rather than reaching for a
// package-global.
type Logger struct {
	appName string
	format  string
	enabled bool

	template   *template.Template
	bufferPool *sync.Pool
	mutex      *sync.Mutex
	levels     []string

	Output io.Writer
}

// loggerLevel is the level of the Logger.
type loggerLevel uint8

// logger levels
const (
	lvlDebug loggerLevel = iota
	lvlInfo
	lvlWarn
	lvlError
	lvlFatal
)

// DefaultLogFormat mirrors the teacher's default structured-log line:
// a flat JSON object with app name, RFC3339 time, level and call site.
// The placeholders are text/template actions (l.template.Execute is
// called against the data map built in log), not shell-style ${...}.
const DefaultLogFormat = `{"app_name":"{{.app_name}}","time":"{{.time_rfc3339}}",` +
	`"level":"{{.level}}","file":"{{.short_file}}","line":"{{.line}}"}`

// NewLogger returns a new Logger for appName, rendering through format
// (an empty format falls back to DefaultLogFormat) when enabled is true.
func NewLogger(appName, format string, enabled bool) *Logger {
	if format == "" {
		format = DefaultLogFormat
	}
	return &Logger{
		appName: appName,
		format:  format,
		enabled: enabled,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return bytes.NewBuffer(make([]byte, 0, 256))
			},
		},
		mutex:  &sync.Mutex{},
		levels: []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"},
		Output: os.Stdout,
	}
}

// Print prints the log info with the provided type i.
func (l *Logger) Print(i ...interface{}) {
	fmt.Fprintln(l.Output, i...)
}

// Printf prints the log info in the format with the provided args.
func (l *Logger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(l.Output, format+"\n", args...)
}

// Debug prints the DEBUG level log info with the provided type i.
func (l *Logger) Debug(i ...interface{}) { l.log(lvlDebug, "", i...) }

// Debugf prints the DEBUG level log info in the format with the provided args.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(lvlDebug, format, args...) }

// Info prints the INFO level log info with the provided type i.
func (l *Logger) Info(i ...interface{}) { l.log(lvlInfo, "", i...) }

// Infof prints the INFO level log info in the format with the provided args.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(lvlInfo, format, args...) }

// Warn prints the WARN level log info with the provided type i.
func (l *Logger) Warn(i ...interface{}) { l.log(lvlWarn, "", i...) }

// Warnf prints the WARN level log info in the format with the provided args.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(lvlWarn, format, args...) }

// Error prints the ERROR level log info with the provided type i.
func (l *Logger) Error(i ...interface{}) { l.log(lvlError, "", i...) }

// Errorf prints the ERROR level log info in the format with the provided args.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(lvlError, format, args...) }

// Fatal prints the FATAL level log info with the provided type i, then
// exits the process. Used only for the ErrSubstrateInit class of
// startup failure.
func (l *Logger) Fatal(i ...interface{}) {
	l.log(lvlFatal, "", i...)
	os.Exit(1)
}

// Fatalf prints the FATAL level log info in the format with the provided args, then exits.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.log(lvlFatal, format, args...)
	os.Exit(1)
}

// log renders the lvl level log entry through the format template.
func (l *Logger) log(lvl loggerLevel, format string, args ...interface{}) {
	if !l.enabled {
		return
	} else if l.template == nil {
		l.template = template.Must(template.New("logger").Parse(l.format))
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	buf := l.bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		l.bufferPool.Put(buf)
	}()

	message := ""
	if format == "" {
		message = fmt.Sprint(args...)
	} else {
		message = fmt.Sprintf(format, args...)
	}

	_, file, line, _ := runtime.Caller(2)

	data := map[string]interface{}{
		"app_name":     l.appName,
		"time_rfc3339": time.Now().Format(time.RFC3339),
		"level":        l.levels[lvl],
		"short_file":   path.Base(file),
		"long_file":    file,
		"line":         strconv.Itoa(line),
	}

	if err := l.template.Execute(buf, data); err != nil {
		return
	}

	s := buf.String()
	if i := buf.Len() - 1; i >= 0 && s[i] == '}' {
		buf.Truncate(i)
		buf.WriteByte(',')
		buf.WriteString(`"message":`)
		mb, _ := json.Marshal(message)
		buf.Write(mb)
		buf.WriteByte('}')
	} else {
		buf.WriteByte(' ')
		buf.WriteString(message)
	}
	buf.WriteByte('\n')
	l.Output.Write(buf.Bytes())
}
