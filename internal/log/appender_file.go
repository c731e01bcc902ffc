package log

import "gopkg.in/natefinch/lumberjack.v2"

// FileAppenderOpt configures a size-rotated log file.
type FileAppenderOpt struct {
	Filename   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

func newFileWriter(options FileAppenderOpt) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,
		MaxBackups: options.MaxBackups,
		MaxAge:     options.MaxAge,
		Compress:   options.Compress,
	}
}

// AddFileAppender adds a rotating file writer.
func (m *MultiWriter) AddFileAppender(options FileAppenderOpt) *MultiWriter {
	return m.Add(newFileWriter(options))
}
