package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorKind はバッチ処理で発生したエラーの分類です。
// アプリケーション層はこの分類を終了コードに対応付けます。
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindParse             // バッチファイルの構文エラー
	KindSetup             // ジョブ生成・パラメータ設定・セッション確立の失敗
	KindGroup             // ダイアログ全体の失敗 (特定のジョブに帰属しない)
	KindJob               // 単一ジョブの失敗
)

// String は ErrorKind の文字列表現を返します。
func (k ErrorKind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindSetup:
		return "SetupError"
	case KindGroup:
		return "GroupError"
	case KindJob:
		return "JobError"
	default:
		return "Error"
	}
}

// BatchError はバッチ処理中に発生するカスタムエラー型です。
// エラーの発生元モジュール、メッセージ、ラップされた元のエラー、
// エラー分類、そしてバッチファイル上の行番号 (該当する場合) を保持します。
type BatchError struct {
	Module      string    // エラーが発生したモジュール (例: "jsl", "job_launcher", "session")
	Message     string    // エラーの簡潔な説明
	OriginalErr error     // ラップされた元のエラー
	Kind        ErrorKind // エラー分類
	Line        int       // バッチファイルの行番号 (0 は行に紐付かないことを示す)
	StackTrace  string    // スタックトレース (デバッグ用)
}

// NewBatchError は新しい BatchError のインスタンスを作成します。
func NewBatchError(module, message string, originalErr error, kind ErrorKind) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf はフォーマット文字列を使用して新しい BatchError のインスタンスを作成します。
func NewBatchErrorf(module string, kind ErrorKind, format string, a ...interface{}) *BatchError {
	return NewBatchError(module, fmt.Sprintf(format, a...), nil, kind)
}

// NewParseError はバッチファイルの指定行に紐付いた構文エラーを作成します。
func NewParseError(line int, format string, a ...interface{}) *BatchError {
	be := NewBatchErrorf("jsl", KindParse, format, a...)
	be.Line = line
	return be
}

// NewSetupError は実行開始前の致命的なエラーを作成します。
func NewSetupError(module, message string, originalErr error) *BatchError {
	return NewBatchError(module, message, originalErr, KindSetup)
}

// NewGroupError はバッチグループのダイアログ全体の失敗を表すエラーを作成します。
func NewGroupError(module, message string, originalErr error) *BatchError {
	return NewBatchError(module, message, originalErr, KindGroup)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error は error インターフェースの実装です。
func (e *BatchError) Error() string {
	msg := e.Message
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, msg, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, msg)
}

// Unwrap は errors.Unwrap のために元のエラーを返します。
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// KindOf はエラーチェーンの中で最初に見つかった BatchError の分類を返します。
// BatchError を含まない場合は KindUnknown を返します。
func KindOf(err error) ErrorKind {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindUnknown
}

// IsKind はエラーが指定された分類の BatchError かどうかを判定します。
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
