// Package logging provides structured logging with OpenTelemetry integration.
//
// Logger wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic context field injection (trace_id, session, request, turn)
//   - Secret redaction at the encoder
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.FromSettings(appCfg.Logging)
//	logger, err := logging.NewLogger(cfg, nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, "chat_01")
//	ctx = logging.WithTurn(ctx, 3)
//	logger.Info(ctx, "answer resolved", zap.String("strategy", "FUZZY"))
//
// User utterances are logged through Utterance, which truncates long input
// so that a pasted document does not flood the log.
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "answer resolved")
//	tl.AssertLogged(t, zapcore.InfoLevel, "answer resolved")
//
// Logger is safe for concurrent use.
package logging
