package jsl

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	core "hbcibatch/pkg/batch/job/core"
	exception "hbcibatch/pkg/batch/util/exception"
	logger "hbcibatch/pkg/batch/util/logger"
)

const (
	delimiterPrefix = "--"
	commentPrefix   = "#"
	lowLevelPrefix  = "_"
	indirectPrefix  = "<"
	utf8BOM         = "\uFEFF"

	maxLineSize = 4 * 1024 * 1024
)

// parseState はパース中の状態です。
// 現在のグループと現在のジョブは区切り行と EOF でのみ確定されます。
type parseState struct {
	opts    Options
	groups  []*BatchGroup
	current *BatchGroup
	job     *JobDefinition
	seen    map[string]int // jobID -> 定義行
}

func newParseState(opts Options) *parseState {
	return &parseState{
		opts:    opts,
		groups:  make([]*BatchGroup, 0),
		current: &BatchGroup{Index: 0, Jobs: make([]*JobDefinition, 0)},
		seen:    make(map[string]int),
	}
}

// ParseFile はバッチファイルを開いてパースします。
func ParseFile(path string, opts Options) ([]*BatchGroup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, exception.NewSetupError("jsl", fmt.Sprintf("バッチファイル '%s' を開けませんでした", path), err)
	}
	defer f.Close()

	groups, err := Parse(f, opts)
	if err != nil {
		return nil, err
	}
	logger.Infof("バッチファイル '%s' をロードしました。グループ数: %d, ジョブ数: %d", path, len(groups), CountJobs(groups))
	return groups, nil
}

// Parse はバッチファイルの内容をファイル順の BatchGroup 列に変換します。
// 最初の不正な行でエラーを返し、部分的な結果は返しません。
func Parse(r io.Reader, opts Options) ([]*BatchGroup, error) {
	st := newParseState(opts)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if lineNo == 1 {
			raw = strings.TrimPrefix(raw, utf8BOM)
		}
		if err := st.parseLine(lineNo, strings.TrimSpace(raw)); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, exception.NewBatchError("jsl", fmt.Sprintf("%d 行目の後でバッチファイルの読み込みに失敗しました", lineNo), err, exception.KindParse)
	}

	st.closeGroup()
	logger.Debugf("バッチファイルのパースが完了しました。行数: %d", lineNo)
	return st.groups, nil
}

func (st *parseState) parseLine(lineNo int, line string) error {
	switch {
	case line == "" || strings.HasPrefix(line, commentPrefix):
		return nil
	case strings.HasPrefix(line, delimiterPrefix):
		return st.parseDelimiter(lineNo, line)
	case isParamLine(line):
		return st.parseParam(lineNo, line)
	case strings.Contains(line, ":"):
		return st.parseHeader(lineNo, line)
	default:
		return exception.NewParseError(lineNo, "解釈できない行です: %q", line)
	}
}

// isParamLine は最初の ':' より前に '=' がある行をパラメータ行とみなします。
func isParamLine(line string) bool {
	eq := strings.Index(line, "=")
	if eq < 0 {
		return false
	}
	colon := strings.Index(line, ":")
	return colon < 0 || eq < colon
}

func (st *parseState) parseDelimiter(lineNo int, line string) error {
	rest := strings.TrimPrefix(line, delimiterPrefix)
	customerID := st.current.CustomerID
	if rest != "" {
		if !strings.HasPrefix(rest, ":") {
			return exception.NewParseError(lineNo, "不正な区切り行です: %q", line)
		}
		if id := strings.TrimSpace(rest[1:]); id != "" {
			customerID = id
		}
	}

	st.closeGroup()
	st.current = &BatchGroup{
		Index:      len(st.groups),
		CustomerID: customerID,
		Jobs:       make([]*JobDefinition, 0),
		Line:       lineNo,
	}
	return nil
}

func (st *parseState) parseParam(lineNo int, line string) error {
	if st.job == nil {
		return exception.NewParseError(lineNo, "ジョブヘッダより前にパラメータ行があります: %q", line)
	}
	eq := strings.Index(line, "=")
	name := strings.TrimSpace(line[:eq])
	if name == "" {
		return exception.NewParseError(lineNo, "パラメータ名が空です: %q", line)
	}
	value := line[eq+1:]

	var pv ParamValue
	if strings.HasPrefix(value, indirectPrefix) {
		path := strings.TrimSpace(value[len(indirectPrefix):])
		if path == "" {
			return exception.NewParseError(lineNo, "パラメータ '%s' のファイルパスが空です", name)
		}
		pv = FileValue(st.opts.sourcePath(path))
	} else {
		pv = LiteralValue(value)
	}
	st.job.Params = append(st.job.Params, Param{Name: name, Value: pv})
	return nil
}

func (st *parseState) parseHeader(lineNo int, line string) error {
	parts := strings.Split(line, ":")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	jd := &JobDefinition{Params: make([]Param, 0), Line: lineNo}
	if strings.HasPrefix(parts[0], lowLevelPrefix) {
		if len(parts) < 2 || len(parts) > 3 {
			return exception.NewParseError(lineNo, "低レベルジョブのヘッダは '_jobname:jobid[:customerid]' の形式で指定してください: %q", line)
		}
		jd.Kind = core.JobKindLowLevel
		jd.JobType = strings.TrimPrefix(parts[0], lowLevelPrefix)
		jd.JobID = parts[1]
		if len(parts) == 3 {
			jd.CustomerID = parts[2]
		}
	} else {
		if len(parts) < 3 || len(parts) > 4 {
			return exception.NewParseError(lineNo, "ジョブのヘッダは 'jobname:jobid:resultmode[:customerid]' の形式で指定してください: %q", line)
		}
		mode, ok := core.ParseResultMode(parts[2])
		if !ok {
			return exception.NewParseError(lineNo, "不正な結果モード '%s' です (props または toString)", parts[2])
		}
		jd.Kind = core.JobKindHighLevel
		jd.JobType = parts[0]
		jd.JobID = parts[1]
		jd.ResultMode = mode
		if len(parts) == 4 {
			jd.CustomerID = parts[3]
		}
	}

	if jd.JobType == "" {
		return exception.NewParseError(lineNo, "ジョブ名が空です: %q", line)
	}
	if jd.JobID == "" {
		return exception.NewParseError(lineNo, "ジョブ ID が空です: %q", line)
	}
	if first, dup := st.seen[jd.JobID]; dup {
		return exception.NewParseError(lineNo, "ジョブ ID '%s' が重複しています (最初の定義: %d 行目)", jd.JobID, first)
	}
	if jd.CustomerID == "" {
		jd.CustomerID = st.current.CustomerID
	}

	st.seen[jd.JobID] = lineNo
	st.current.Jobs = append(st.current.Jobs, jd)
	st.job = jd
	return nil
}

// closeGroup は現在のグループを確定します。空のグループも結果に含めます。
func (st *parseState) closeGroup() {
	st.groups = append(st.groups, st.current)
	st.job = nil
}
