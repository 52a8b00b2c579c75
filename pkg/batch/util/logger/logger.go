package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu       sync.RWMutex
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar    = newSugar(zapcore.Lock(os.Stderr))
	closeOut func()
)

func newSugar(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, logLevel)
	return zap.New(core).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// SetLogLevel はログレベルを設定します。
func SetLogLevel(level string) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		logLevel.SetLevel(zapcore.DebugLevel)
	case "INFO":
		logLevel.SetLevel(zapcore.InfoLevel)
	case "WARN":
		logLevel.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		logLevel.SetLevel(zapcore.ErrorLevel)
	case "FATAL":
		logLevel.SetLevel(zapcore.FatalLevel)
	default:
		logLevel.SetLevel(zapcore.InfoLevel)
		Warnf("不明なログレベル '%s' が指定されました。INFO レベルで続行します。", level)
	}
}

// Level は現在のログレベルを返します。
func Level() string {
	return strings.ToUpper(logLevel.Level().String())
}

// SetOutput はログの出力先をファイルに切り替えます。
// 以前にファイルを開いていた場合はそのファイルを閉じます。
func SetOutput(path string) error {
	ws, closeFn, err := zap.Open(path)
	if err != nil {
		return err
	}
	swap(newSugar(ws), closeFn)
	return nil
}

// SetWriter はログの出力先を任意の io.Writer に切り替えます。主にテストで使用します。
// nil を渡すと標準エラー出力に戻します。
func SetWriter(w io.Writer) {
	if w == nil {
		swap(newSugar(zapcore.Lock(os.Stderr)), nil)
		return
	}
	swap(newSugar(zapcore.AddSync(w)), nil)
}

func swap(next *zap.SugaredLogger, closeFn func()) {
	mu.Lock()
	prevClose := closeOut
	_ = sugar.Sync()
	sugar = next
	closeOut = closeFn
	mu.Unlock()
	if prevClose != nil {
		prevClose()
	}
}

// Sync はバッファされたログを書き出します。
func Sync() {
	_ = current().Sync()
}

// Debugf は DEBUG レベルのログを出力します。
func Debugf(format string, v ...interface{}) {
	current().Debugf(format, v...)
}

// Infof は INFO レベルのログを出力します。
func Infof(format string, v ...interface{}) {
	current().Infof(format, v...)
}

// Warnf は WARN レベルのログを出力します。
func Warnf(format string, v ...interface{}) {
	current().Warnf(format, v...)
}

// Errorf は ERROR レベルのログを出力します。
func Errorf(format string, v ...interface{}) {
	current().Errorf(format, v...)
}

// Fatalf は FATAL レベルのログを出力し、プログラムを終了します。
func Fatalf(format string, v ...interface{}) {
	current().Fatalf(format, v...)
}
