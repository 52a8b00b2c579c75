package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hbcibatch/pkg/batch/database"
	core "hbcibatch/pkg/batch/job/core"
	exception "hbcibatch/pkg/batch/util/exception"
	logger "hbcibatch/pkg/batch/util/logger"
	serialization "hbcibatch/pkg/batch/util/serialization"
)

const (
	insertRunExecution = `
    INSERT INTO run_executions (id, batch_file, status, exit_code, start_time, end_time, create_time, last_updated, failure_exceptions)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	updateRunExecution = `
    UPDATE run_executions
    SET status = ?, exit_code = ?, end_time = ?, last_updated = ?, failure_exceptions = ?
    WHERE id = ?`

	insertGroupExecution = `
    INSERT INTO group_executions (id, run_execution_id, group_index, customer_id, status, global_status, start_time, end_time, job_count, failure_exceptions)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	insertJobResult = `
    INSERT INTO job_results (run_execution_id, job_id, group_execution_id, group_index, customer_id, job_type, job_kind, result_mode, succeeded, global_status, job_status, result)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// SQLJobRepository は JobRepository インターフェースの SQL データベース実装です。
type SQLJobRepository struct {
	dbConnection database.DBConnection
}

// NewSQLJobRepository は新しい SQLJobRepository のインスタンスを作成します。
// 既に確立されたデータベース接続の抽象化を受け取ります。
func NewSQLJobRepository(dbConn database.DBConnection) *SQLJobRepository {
	return &SQLJobRepository{dbConnection: dbConn}
}

func (r *SQLJobRepository) query(q string) string {
	return r.dbConnection.Dialect().Rebind(q)
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// SaveRunExecution は新しい RunExecution をデータベースに保存します。
func (r *SQLJobRepository) SaveRunExecution(ctx context.Context, run *core.RunExecution) error {
	failuresJSON, err := serialization.MarshalFailures(run.Failures)
	if err != nil {
		return err
	}

	_, err = r.dbConnection.ExecContext(
		ctx,
		r.query(insertRunExecution),
		run.ID,
		run.BatchFile,
		string(run.Status),
		run.ExitCode,
		nullTime(run.StartTime),
		nullTime(run.EndTime),
		run.CreateTime,
		run.LastUpdated,
		string(failuresJSON),
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("RunExecution (ID: %s) の保存に失敗しました", run.ID), err, exception.KindUnknown)
	}

	logger.Debugf("RunExecution (ID: %s) を保存しました。", run.ID)
	return nil
}

// UpdateRunExecution は既存の RunExecution の状態をデータベースで更新します。
func (r *SQLJobRepository) UpdateRunExecution(ctx context.Context, run *core.RunExecution) error {
	failuresJSON, err := serialization.MarshalFailures(run.Failures)
	if err != nil {
		return err
	}

	res, err := r.dbConnection.ExecContext(
		ctx,
		r.query(updateRunExecution),
		string(run.Status),
		run.ExitCode,
		nullTime(run.EndTime),
		time.Now(),
		string(failuresJSON),
		run.ID,
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("RunExecution (ID: %s) の更新に失敗しました", run.ID), err, exception.KindUnknown)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("RunExecution (ID: %s) の更新結果取得に失敗しました", run.ID), err, exception.KindUnknown)
	}
	if rowsAffected == 0 {
		return exception.NewBatchErrorf("job_repository", exception.KindUnknown, "RunExecution (ID: %s) の更新対象が見つかりませんでした", run.ID)
	}

	logger.Debugf("RunExecution (ID: %s) を更新しました。", run.ID)
	return nil
}

// SaveGroupExecution はグループとジョブ結果を 1 トランザクションで保存します。
func (r *SQLJobRepository) SaveGroupExecution(ctx context.Context, run *core.RunExecution, ge *core.GroupExecution) (err error) {
	failuresJSON, err := serialization.MarshalFailures(ge.Failures)
	if err != nil {
		return err
	}

	tx, err := r.dbConnection.BeginTx(ctx, nil)
	if err != nil {
		return exception.NewBatchError("job_repository", "トランザクションの開始に失敗しました", err, exception.KindUnknown)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Errorf("トランザクションのロールバックに失敗しました: %v", rbErr)
			}
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		r.query(insertGroupExecution),
		ge.ID,
		run.ID,
		ge.Index,
		ge.CustomerID,
		string(ge.Status),
		ge.GlobalStatus,
		nullTime(ge.StartTime),
		nullTime(ge.EndTime),
		len(ge.Jobs),
		string(failuresJSON),
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("GroupExecution (ID: %s) の保存に失敗しました", ge.ID), err, exception.KindUnknown)
	}

	for _, je := range ge.Jobs {
		if err = r.insertJobResult(ctx, tx, run, ge, je); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return exception.NewBatchError("job_repository", "トランザクションのコミットに失敗しました", err, exception.KindUnknown)
	}
	logger.Debugf("GroupExecution (ID: %s, Index: %d) とジョブ結果 %d 件を保存しました。", ge.ID, ge.Index, len(ge.Jobs))
	return nil
}

func (r *SQLJobRepository) insertJobResult(ctx context.Context, tx database.Tx, run *core.RunExecution, ge *core.GroupExecution, je *core.JobExecution) error {
	resultJSON, err := serialization.MarshalResult(je.Result)
	if err != nil {
		return err
	}
	var globalStatus, jobStatus string
	if je.Result != nil {
		globalStatus = je.Result.GlobalStatusMessage
		jobStatus = je.Result.JobStatusMessage
	}

	_, err = tx.ExecContext(
		ctx,
		r.query(insertJobResult),
		run.ID,
		je.JobID,
		ge.ID,
		je.GroupIndex,
		je.CustomerID,
		je.JobType,
		je.Kind.String(),
		string(je.ResultMode),
		je.Succeeded(),
		globalStatus,
		jobStatus,
		string(resultJSON),
	)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("ジョブ結果 (JobID: %s) の保存に失敗しました", je.JobID), err, exception.KindUnknown)
	}
	return nil
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	if r.dbConnection != nil {
		if err := r.dbConnection.Close(); err != nil {
			return exception.NewBatchError("job_repository", "データベース接続を閉じるのに失敗しました", err, exception.KindUnknown)
		}
		logger.Debugf("Job Repository のデータベース接続を閉じました。")
	}
	return nil
}

var _ JobRepository = (*SQLJobRepository)(nil)
