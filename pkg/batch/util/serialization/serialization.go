package serialization

import (
	"encoding/json"

	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/util/exception"
	logger "hbcibatch/pkg/batch/util/logger"
)

const module = "serialization"

// resultDocument は実行履歴に保存するジョブ結果の JSON 表現です。
type resultDocument struct {
	Properties map[string]string `json:"properties,omitempty"`
	Text       string            `json:"text,omitempty"`
}

// MarshalResult はジョブ結果のデータ部分を JSON バイトスライスにシリアライズします。
// 失敗したジョブや結果のないジョブは "{}" になります。
func MarshalResult(res *core.ExecutionResult) ([]byte, error) {
	if res == nil || !res.Succeeded {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(resultDocument{Properties: res.ResultProperties, Text: res.ResultText})
	if err != nil {
		logger.Errorf("ジョブ '%s' の結果のシリアライズに失敗しました: %v", res.JobID, err)
		return nil, exception.NewBatchError(module, "ジョブ結果のシリアライズに失敗しました", err, exception.KindUnknown)
	}
	return data, nil
}

// MarshalFailures は []error をエラーメッセージの JSON 配列にシリアライズします。
func MarshalFailures(failures []error) ([]byte, error) {
	if len(failures) == 0 {
		return []byte("[]"), nil
	}
	msgs := make([]string, 0, len(failures))
	for _, err := range failures {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		logger.Errorf("failures のシリアライズに失敗しました: %v", err)
		return nil, exception.NewBatchError(module, "failures のシリアライズに失敗しました", err, exception.KindUnknown)
	}
	return data, nil
}
