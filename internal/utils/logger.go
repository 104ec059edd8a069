package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

type FileLogger struct {
	file       *os.File
	logger     *log.Logger
	multiWrite io.Writer
}

// NewFileLogger creates a logger writing to both stdout and a
// timestamped file under baseDir/name.
func NewFileLogger(baseDir, name string) (*FileLogger, error) {
	dir := filepath.Join(baseDir, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	// Multi-writer for both file and stdout
	multiWrite := io.MultiWriter(os.Stdout, file)
	logger := log.New(multiWrite, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &FileLogger{
		file:       file,
		logger:     logger,
		multiWrite: multiWrite,
	}, nil
}

func (fl *FileLogger) LogInfo(format string, v ...interface{}) {
	fl.log("INFO", format, v...)
}

func (fl *FileLogger) LogError(format string, v ...interface{}) {
	fl.log("ERROR", format, v...)
}

func (fl *FileLogger) LogDebug(format string, v ...interface{}) {
	fl.log("DEBUG", format, v...)
}

func (fl *FileLogger) log(level string, format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	fl.logger.Printf("[%s] %s", level, message)
}

func (fl *FileLogger) Close() error {
	return fl.file.Close()
}
