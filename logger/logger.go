package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options はロガーの設定です。
type Options struct {
	File  string // 空の場合はファイルに書き出さない
	Level string
}

// Logger は slog をラップし、interfaces.Logger を満たします。
type Logger struct {
	l *slog.Logger
}

// シングルトンとしてロガーを保持
var std = New(os.Stdout, slog.LevelInfo)

// Init はログの出力先を「標準出力」とローテーションするファイルに設定します。
func Init(opts Options) *Logger {
	var w io.Writer = os.Stdout
	if opts.File != "" {
		logFile := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // 1ファイルあたりの最大サイズ (MB)
			MaxBackups: 5,
			MaxAge:     30, // 日数
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, logFile)
	}

	std = New(w, ParseLevel(opts.Level))
	slog.SetDefault(std.l)
	return std
}

// New はJSON形式で w に書き出すロガーを作成します。
func New(w io.Writer, level slog.Level) *Logger {
	return &Logger{l: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     level,
	}))}
}

// Default returns the logger configured by Init.
func Default() *Logger {
	return std
}

// ParseLevel maps "debug", "warn", "error" to slog levels. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a logger that always adds args.
func (lg *Logger) With(args ...any) *Logger {
	return &Logger{l: lg.l.With(args...)}
}

func (lg *Logger) Debug(msg string, args ...any) { lg.l.Debug(msg, args...) }
func (lg *Logger) Info(msg string, args ...any)  { lg.l.Info(msg, args...) }
func (lg *Logger) Warn(msg string, args ...any)  { lg.l.Warn(msg, args...) }
func (lg *Logger) Error(msg string, args ...any) { lg.l.Error(msg, args...) }

// Fatal はエラーを出力してプログラムを終了します。
func (lg *Logger) Fatal(msg string, args ...any) {
	lg.l.Error(msg, args...)
	os.Exit(1)
}

// Infoレベルのログを出力
// 例: logger.Info("Botが起動しました", "version", "1.2.3")
func Info(msg string, args ...any) {
	std.Info(msg, args...)
}

// Warnレベルのログを出力
func Warn(msg string, args ...any) {
	std.Warn(msg, args...)
}

// Errorレベルのログを出力
// 例: logger.Error("出現メッセージの送信に失敗", "error", err, "guildID", guildID)
func Error(msg string, args ...any) {
	std.Error(msg, args...)
}

// Fatalレベルのログを出力（出力後にプログラムを終了）
func Fatal(msg string, args ...any) {
	std.Fatal(msg, args...)
}
