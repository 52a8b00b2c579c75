package scripted_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"hbcibatch/pkg/batch/answer"
	"hbcibatch/pkg/batch/config"
	core "hbcibatch/pkg/batch/job/core"
	"hbcibatch/pkg/batch/session"
	"hbcibatch/pkg/batch/session/scripted"
	"hbcibatch/pkg/batch/util/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenario = `
passport_version: "300"
global_status: "0010 Nachricht entgegengenommen."
dialog_error: "9050 Dialog abgebrochen."
fail_dialog_for: [BAD]
known_jobs: [SaldoReq, TANList, UebSEPA]
tan_required: [UebSEPA]
jobs:
  j1:
    job_status: "0020 Saldo ermittelt."
    data:
      balance: "10.00"
      currency: EUR
  j2:
    ok: false
    global_status: "3060 Teilweise liegen Warnungen/Fehler vor."
    job_status: "9210 Konto unbekannt."
  t1:
    text: "TAN-Liste 1\n"
`

func answers(overrides map[string]string) *answer.Table {
	values := map[string]string{
		"country":    "DE",
		"blz":        "83053030",
		"host":       "banking.example.de/PinTanServlet",
		"port":       "443",
		"userid":     "222222222",
		"customerid": "333333333",
		"pin":        "xxxxxx",
	}
	for k, v := range overrides {
		if v == "" {
			delete(values, k)
			continue
		}
		values[k] = v
	}
	return answer.NewTable(values)
}

func newSession(t *testing.T, overrides map[string]string) *scripted.Session {
	t.Helper()
	script, err := scripted.ParseScript([]byte(scenario))
	require.NoError(t, err)
	s, err := scripted.New(context.Background(), script, config.NewConfig().Session, answers(overrides))
	require.NoError(t, err)
	return s
}

func enqueue(t *testing.T, s *scripted.Session, jobID, jobType, customerID string, params ...string) {
	t.Helper()
	h, err := s.CreateJob(context.Background(), jobID, jobType, core.JobKindHighLevel)
	require.NoError(t, err)
	for i := 0; i+1 < len(params); i += 2 {
		require.NoError(t, h.SetParam(params[i], params[i+1]))
	}
	require.NoError(t, h.Enqueue(customerID))
}

func TestNew_ResolvesConnectionData(t *testing.T) {
	s := newSession(t, nil)

	assert.Equal(t, "300", s.Version)
	assert.Equal(t, "DE", s.Country)
	assert.Equal(t, "banking.example.de/PinTanServlet", s.Host)
	assert.Equal(t, "443", s.Port)
	assert.Equal(t, "333333333", s.CustomerID)
}

func TestNew_FallsBackToDefaultHBCIVersion(t *testing.T) {
	s, err := scripted.New(context.Background(), &scripted.Script{}, config.NewConfig().Session, answers(nil))
	require.NoError(t, err)
	assert.Equal(t, "plus", s.Version)
}

func TestNew_MissingConnectionData(t *testing.T) {
	_, err := scripted.New(context.Background(), &scripted.Script{}, config.NewConfig().Session, answers(map[string]string{"host": "", "userid": ""}))
	require.Error(t, err)
	assert.True(t, exception.IsKind(err, exception.KindSetup))
	assert.Contains(t, err.Error(), "host, userid")
}

func TestExecute_ScriptedOutcomes(t *testing.T) {
	s := newSession(t, nil)
	enqueue(t, s, "j1", "SaldoReq", "C1", "my.number", "123", "my.blz", "456")
	enqueue(t, s, "j2", "SaldoReq", "C1")
	enqueue(t, s, "t1", "TANList", "")

	gr, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "0010 Nachricht entgegengenommen.", gr.GlobalStatus)
	require.Len(t, gr.Results, 3)

	j1 := gr.Results["j1"]
	assert.True(t, j1.Succeeded)
	assert.Equal(t, "0020 Saldo ermittelt.", j1.JobStatusMessage)
	assert.Equal(t, map[string]string{"balance": "10.00", "currency": "EUR"}, j1.ResultProperties)

	j2 := gr.Results["j2"]
	assert.False(t, j2.Succeeded)
	assert.Equal(t, "3060 Teilweise liegen Warnungen/Fehler vor.", j2.GlobalStatusMessage)
	assert.Equal(t, "9210 Konto unbekannt.", j2.JobStatusMessage)

	assert.Equal(t, "TAN-Liste 1\n", gr.Results["t1"].ResultText)

	require.Len(t, s.Dialogs, 1)
	d := s.Dialogs[0]
	assert.Equal(t, []string{"C1", "333333333"}, d.CustomerIDs)
	assert.Equal(t, []scripted.Param{{Name: "my.number", Value: "123"}, {Name: "my.blz", Value: "456"}}, d.Jobs[0].Params)
}

func TestExecute_EmptyQueueIsNoop(t *testing.T) {
	s := newSession(t, nil)
	gr, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gr.Results)
	assert.Empty(t, s.Dialogs)
}

func TestExecute_QueueIsClearedBetweenDialogs(t *testing.T) {
	s := newSession(t, nil)
	enqueue(t, s, "a", "SaldoReq", "C1")
	_, err := s.Execute(context.Background())
	require.NoError(t, err)

	enqueue(t, s, "b", "SaldoReq", "C2")
	gr, err := s.Execute(context.Background())
	require.NoError(t, err)

	assert.Len(t, gr.Results, 1)
	assert.Contains(t, gr.Results, "b")
	require.Len(t, s.Dialogs, 2)
	assert.Equal(t, []string{"C2"}, s.Dialogs[1].CustomerIDs)
}

func TestExecute_DialogFailures(t *testing.T) {
	t.Run("Scripted customer failure", func(t *testing.T) {
		s := newSession(t, nil)
		enqueue(t, s, "x", "SaldoReq", "BAD")
		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.KindGroup))
		assert.Contains(t, err.Error(), "9050 Dialog abgebrochen.")
		assert.True(t, s.Dialogs[0].Failed)
	})

	t.Run("Missing PIN", func(t *testing.T) {
		s := newSession(t, map[string]string{"pin": ""})
		enqueue(t, s, "x", "SaldoReq", "C1")
		_, err := s.Execute(context.Background())
		require.Error(t, err)
		assert.True(t, exception.IsKind(err, exception.KindGroup))
	})
}

func TestExecute_MissingTanFailsOnlyThatJob(t *testing.T) {
	s := newSession(t, nil)
	enqueue(t, s, "u1", "UebSEPA", "C1")
	enqueue(t, s, "j1", "SaldoReq", "C1")

	gr, err := s.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, gr.Results["u1"].Succeeded)
	assert.Equal(t, "9941 TAN fehlt.", gr.Results["u1"].JobStatusMessage)
	assert.True(t, gr.Results["j1"].Succeeded)
}

func TestCreateJob_Errors(t *testing.T) {
	s := newSession(t, nil)

	_, err := s.CreateJob(context.Background(), "z", "Unknown", core.JobKindLowLevel)
	assert.True(t, exception.IsKind(err, exception.KindSetup))

	h, err := s.CreateJob(context.Background(), "j1", "SaldoReq", core.JobKindHighLevel)
	require.NoError(t, err)
	require.NoError(t, h.Enqueue("C1"))
	assert.Error(t, h.SetParam("late", "1"))
	assert.Error(t, h.Enqueue("C1"))

	require.NoError(t, s.Close())
	_, err = s.CreateJob(context.Background(), "j3", "SaldoReq", core.JobKindHighLevel)
	assert.Error(t, err)
}

func TestOpen_ThroughRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0o600))

	cfg := config.NewConfig().Session
	cfg.Script = path

	s, err := session.Open(context.Background(), cfg, answers(nil))
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &scripted.Session{}, s)
	assert.Contains(t, session.Drivers(), scripted.DriverName)

	cfg.Script = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = session.Open(context.Background(), cfg, answers(nil))
	assert.True(t, exception.IsKind(err, exception.KindSetup))

	cfg.Driver = "hbci4java"
	_, err = session.Open(context.Background(), cfg, answers(nil))
	assert.True(t, exception.IsKind(err, exception.KindSetup))
}
