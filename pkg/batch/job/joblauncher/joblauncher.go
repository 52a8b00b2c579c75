package joblauncher

import (
	"context"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/job/jsl"
)

// JobLauncher はパース済みのバッチグループを Session 上で実行するためのインターフェースです。
type JobLauncher interface {
	// Launch はグループを順に実行し、ジョブ定義順の結果表を持つ RunExecution を返します。
	// ここで返されるエラーは個々のジョブの失敗ではなく、ラン全体を中断させたエラーです。
	// エラーの場合も、それまでの結果を含む RunExecution が返されます。
	Launch(ctx context.Context, batchFile string, groups []*jsl.BatchGroup) (*core.RunExecution, error)
}
