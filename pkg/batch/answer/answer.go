package answer

import (
	"fmt"
	"sort"

	"github.com/magiconair/properties"

	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// RequestKind はセッションが接続確立と認証の間に要求するデータの種類です。
type RequestKind int

const (
	NeedSecMech RequestKind = iota + 1
	NeedSoftPin
	NeedPassphraseLoad
	NeedPassphraseSave
	NeedPin
	NeedTan
	NeedCountry
	NeedBLZ
	NeedHost
	NeedPort
	NeedFilter
	NeedUserID
	NeedCustomerID
	NeedSizEntrySelect
	NeedNewInstKeysAck
	NeedConnection
	CloseConnection
	NeedChipcard
	NeedHardPin
)

var requestNames = map[RequestKind]string{
	NeedSecMech:        "NEED_PT_SECMECH",
	NeedSoftPin:        "NEED_SOFTPIN",
	NeedPassphraseLoad: "NEED_PASSPHRASE_LOAD",
	NeedPassphraseSave: "NEED_PASSPHRASE_SAVE",
	NeedPin:            "NEED_PT_PIN",
	NeedTan:            "NEED_PT_TAN",
	NeedCountry:        "NEED_COUNTRY",
	NeedBLZ:            "NEED_BLZ",
	NeedHost:           "NEED_HOST",
	NeedPort:           "NEED_PORT",
	NeedFilter:         "NEED_FILTER",
	NeedUserID:         "NEED_USERID",
	NeedCustomerID:     "NEED_CUSTOMERID",
	NeedSizEntrySelect: "NEED_SIZENTRY_SELECT",
	NeedNewInstKeysAck: "NEED_NEW_INST_KEYS_ACK",
	NeedConnection:     "NEED_CONNECTION",
	CloseConnection:    "CLOSE_CONNECTION",
	NeedChipcard:       "NEED_CHIPCARD",
	NeedHardPin:        "NEED_HARDPIN",
}

// answerKeys は要求に対応する回答テーブルのキーです。
// パスフレーズの読み込みと保存は同じキーを使用します。
var answerKeys = map[RequestKind]string{
	NeedSecMech:        "secmech",
	NeedSoftPin:        "softpin",
	NeedPassphraseLoad: "passphrase",
	NeedPassphraseSave: "passphrase",
	NeedPin:            "pin",
	NeedTan:            "tan",
	NeedCountry:        "country",
	NeedBLZ:            "blz",
	NeedHost:           "host",
	NeedPort:           "port",
	NeedFilter:         "filter",
	NeedUserID:         "userid",
	NeedCustomerID:     "customerid",
	NeedSizEntrySelect: "sizentry",
}

func (k RequestKind) String() string {
	if name, ok := requestNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// Key は回答テーブルのキーを返します。テーブルから回答しない要求では "" を返します。
func (k RequestKind) Key() string {
	return answerKeys[k]
}

// NoticeKind は回答を必要としない通知の種類です。
type NoticeKind int

const (
	HaveNewMyKeys NoticeKind = iota + 1
	HaveInstMsg
)

// Resolver はセッションの生成時に渡され、対話的な要求に回答します。
type Resolver interface {
	// Resolve は kind に対する回答を返します。未設定の場合は "" を返します。
	Resolve(kind RequestKind) string
	// Notify は回答を伴わない通知を受け取ります。
	Notify(kind NoticeKind, msg string)
	// Status は進捗通知を受け取ります。通知はバッチの出力には含めません。
	Status(tag int, objs ...any)
}

// Table は起動時に一度だけロードされる不変の回答テーブルです。
// 参照のみのため、ロックなしで並行に使用できます。
type Table struct {
	answers map[string]string
}

// NewTable は answers をコピーして新しい Table を作成します。
func NewTable(answers map[string]string) *Table {
	copied := make(map[string]string, len(answers))
	for k, v := range answers {
		copied[k] = v
	}
	return &Table{answers: copied}
}

// LoadTable は Java の properties 形式の回答ファイルを読み込みます。
// 値の途中の '#' や '$' は文字としてそのまま扱い、${...} の展開は行いません。
func LoadTable(path string) (*Table, error) {
	loader := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, exception.NewSetupError("answer", fmt.Sprintf("回答ファイル '%s' の読み込みに失敗しました", path), err)
	}
	t := NewTable(p.Map())
	logger.Debugf("回答ファイル '%s' をロードしました。キー: %v", path, t.Keys())
	return t, nil
}

// Resolve は Resolver の実装です。キーがない場合はエラーではなく "" を返し、
// 空の回答を致命的とするかどうかはセッションが判断します。
func (t *Table) Resolve(kind RequestKind) string {
	switch kind {
	case NeedNewInstKeysAck, NeedConnection, CloseConnection:
		return ""
	case NeedChipcard, NeedHardPin:
		logger.Warnf("%s はバッチ実行ではサポートされていません。空の値を返します。", kind)
		return ""
	}
	key := kind.Key()
	if key == "" {
		logger.Warnf("未知の要求 %s に空の値を返します。", kind)
		return ""
	}
	value, ok := t.answers[key]
	if !ok {
		logger.Debugf("回答テーブルにキー '%s' (%s) がありません。", key, kind)
	}
	return value
}

// Lookup はキーに対応する値をそのまま返します。
func (t *Table) Lookup(key string) (string, bool) {
	v, ok := t.answers[key]
	return v, ok
}

// Keys は設定されているキーを昇順で返します。値はログに出力しません。
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.answers))
	for k := range t.answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Notify は Resolver の実装です。
func (t *Table) Notify(kind NoticeKind, msg string) {
	switch kind {
	case HaveNewMyKeys:
		logger.Warnf("新しいユーザー鍵が生成されました。please restart batch process")
	case HaveInstMsg:
		logger.Infof("金融機関からのメッセージ: %s", msg)
	}
}

// Status は Resolver の実装です。通知はすべて破棄します。
func (t *Table) Status(tag int, objs ...any) {}

var _ Resolver = (*Table)(nil)
