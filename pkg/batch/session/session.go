package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"hbcibatch/pkg/batch/answer"
	"hbcibatch/pkg/batch/config"
	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/util/exception"
	"hbcibatch/pkg/batch/util/logger"
)

// JobHandle は Session 上に作成された単一のジョブです。
type JobHandle interface {
	// SetParam はパラメータを設定します。呼び出し順がそのまま保持されます。
	SetParam(name, value string) error
	// Enqueue はジョブを顧客 ID のキューに追加します。
	Enqueue(customerID string) error
}

// Session はプロトコルエンジンとの 1 接続です。
// Execute はキューに積まれた全ジョブを 1 ダイアログで実行し、キューを空にします。
type Session interface {
	CreateJob(ctx context.Context, jobID, jobType string, kind core.JobKind) (JobHandle, error)
	Execute(ctx context.Context) (*core.GroupResult, error)
	Close() error
}

// Driver は Session を生成します。Resolver は対話的な入力要求に応答するために渡されます。
type Driver interface {
	Open(ctx context.Context, cfg config.SessionConfig, resolver answer.Resolver) (Session, error)
}

// DriverFunc は関数を Driver として扱うためのアダプタです。
type DriverFunc func(ctx context.Context, cfg config.SessionConfig, resolver answer.Resolver) (Session, error)

// Open は Driver インターフェースの実装です。
func (f DriverFunc) Open(ctx context.Context, cfg config.SessionConfig, resolver answer.Resolver) (Session, error) {
	return f(ctx, cfg, resolver)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register は指定された名前で Driver を登録します。
func Register(name string, driver Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("session: Register driver is nil")
	}
	if _, exists := drivers[name]; exists {
		logger.Warnf("セッションドライバ '%s' は既に登録されています。上書きします。", name)
	}
	drivers[name] = driver
}

// Drivers は登録済みのドライバ名をソートして返します。
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open は設定されたドライバで Session を確立します。
// 失敗はすべて SetupError として返されます。
func Open(ctx context.Context, cfg config.SessionConfig, resolver answer.Resolver) (Session, error) {
	driversMu.RLock()
	driver, ok := drivers[cfg.Driver]
	driversMu.RUnlock()
	if !ok {
		return nil, exception.NewSetupError("session", fmt.Sprintf("未対応のセッションドライバです: '%s' (登録済み: %v)", cfg.Driver, Drivers()), nil)
	}

	logger.Infof("セッションを確立します。ドライバ: %s", cfg.Driver)
	s, err := driver.Open(ctx, cfg, resolver)
	if err != nil {
		if exception.IsKind(err, exception.KindSetup) {
			return nil, err
		}
		return nil, exception.NewSetupError("session", "セッションの確立に失敗しました", err)
	}
	return s, nil
}

// PassportVersion はパスポートが報告した HBCI バージョンを返します。
// 空の場合は session.default_hbci_version、それも空ならカーネルパラメータの既定値を使用します。
func PassportVersion(reported string, cfg config.SessionConfig) string {
	if reported != "" {
		return reported
	}
	version := cfg.DefaultHBCIVersion
	if version == "" {
		version = cfg.Kernel["client.passport.hbciversion.default"]
	}
	logger.Debugf("パスポートに HBCI バージョンが設定されていません。'%s' を使用します。", version)
	return version
}
