// Package engine implements the streamed two-phase transaction-signing
// state machine: Phase 1 walks every input and output to compute totals
// and obtain user confirmation, Phase 2 re-walks them once per input to
// rebuild the signing digest and emit signed fragments. See the package's
// _test.go files for the two-pass consistency and prev-hash verification
// properties this design exists to enforce.
package engine

import (
	"crypto/sha256"
	"fmt"

	"go.uber.org/zap"

	"github.com/coldbolt/txsigner/internal/telemetry"
	"github.com/coldbolt/txsigner/pkg/coin"
	"github.com/coldbolt/txsigner/pkg/codec"
	"github.com/coldbolt/txsigner/pkg/confirm"
	"github.com/coldbolt/txsigner/pkg/keys"
	"github.com/coldbolt/txsigner/pkg/script"
	"github.com/coldbolt/txsigner/pkg/txerr"
	"github.com/coldbolt/txsigner/pkg/wire"
)

// Engine is the top-level dispatcher: it holds at most one active
// *Session. A nil session is the type-enforced "inactive" state named in
// the design notes, rather than a boolean flag alongside module-level
// fields.
type Engine struct {
	session  *Session
	prompter confirm.Prompter
	log      *zap.Logger
}

// New builds an Engine bound to one confirmation prompter and tagged with
// sessionID for every log line it emits. sessionID is ambient
// bookkeeping, not part of the signing protocol itself.
func New(sessionID string, prompter confirm.Prompter) *Engine {
	return &Engine{prompter: prompter, log: telemetry.Session(sessionID)}
}

// Start initializes a new signing session. Fails with UnexpectedMessage
// if a session is already active — starting a new session while one is
// active is a protocol violation, same kind as an ack with no session
// active, since both describe a message arriving in the wrong mode.
func (e *Engine) Start(inputsCount, outputsCount uint32, c coin.Params, root *keys.HDNode) (wire.TxRequest, error) {
	if e.session != nil {
		return wire.TxRequest{}, txerr.ErrNotInSigningMode
	}

	s := &Session{
		inputsCount:  inputsCount,
		outputsCount: outputsCount,
		coin:         c,
		root:         root,
		prompter:     e.prompter,
		log:          e.log,
		stage:        StageReq1Input,
		checksumHash: newChecksumHasher(),
	}
	seedChecksum(s.checksumHash, inputsCount, outputsCount)
	e.session = s

	e.log.Info("session started", zap.Uint32("inputs_count", inputsCount), zap.Uint32("outputs_count", outputsCount))
	idx := uint32(0)
	return wire.TxRequest{RequestType: wire.RequestTypeInput, RequestIndex: &idx}, nil
}

// Abort discards session state and wipes private material. Safe to call
// with no session active.
func (e *Engine) Abort() {
	if e.session != nil {
		e.session.zeroKeyMaterial()
		e.log.Warn("session aborted", telemetry.Stage(e.session.stage.String(), e.session.idx1, e.session.idx2)...)
	}
	e.session = nil
}

// OnAck processes one host response and emits exactly one outbound
// message. Any error is terminal: the session is discarded and its key
// material wiped before OnAck returns.
//
// A panic inside dispatch (a nil dereference or index fault from a
// malformed ack that no explicit check above happened to catch) is
// recovered here rather than left to crash the process: it is logged and
// converted to the fixed "Signing error" fault, the same way the
// protocol's Other-kind catch-all is documented to behave for unexpected
// internal faults.
func (e *Engine) OnAck(ack wire.TxAck) (req wire.TxRequest, err error) {
	if e.session == nil {
		return wire.TxRequest{}, txerr.ErrNotInSigningMode
	}
	session := e.session

	defer func() {
		if r := recover(); r != nil {
			fields := append(telemetry.Stage(session.stage.String(), session.idx1, session.idx2), zap.Any("recovered", r))
			e.log.Error("session panicked", fields...)
			session.zeroKeyMaterial()
			e.session = nil
			req, err = wire.TxRequest{}, txerr.ErrSigningError(fmt.Errorf("recovered: %v", r))
		}
	}()

	req, err = session.dispatch(ack)
	if err != nil {
		fields := append(telemetry.Stage(session.stage.String(), session.idx1, session.idx2), zap.Error(err))
		e.log.Error("session failed", fields...)
		session.zeroKeyMaterial()
		e.session = nil
		return wire.TxRequest{}, err
	}

	if req.RequestType == wire.RequestTypeFinished {
		e.log.Info("session finished")
		session.zeroKeyMaterial()
		e.session = nil
	}
	return req, nil
}

// dispatch is the total message handler: every Stage has a distinct
// expected TxAck payload shape, checked before use.
func (s *Session) dispatch(ack wire.TxAck) (wire.TxRequest, error) {
	s.log.Debug("stage transition", telemetry.Stage(s.stage.String(), s.idx1, s.idx2)...)

	switch s.stage {
	case StageReq1Input:
		return s.handleReq1Input(ack)
	case StageReq2PrevMeta:
		return s.handleReq2PrevMeta(ack)
	case StageReq2PrevInput:
		return s.handleReq2PrevInput(ack)
	case StageReq2PrevOutput:
		return s.handleReq2PrevOutput(ack)
	case StageReq3Output:
		return s.handleReq3Output(ack)
	case StageReq4Input:
		return s.handleReq4Input(ack)
	case StageReq4Output:
		return s.handleReq4Output(ack)
	case StageReq5Output:
		return s.handleReq5Output(ack)
	default:
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}
}

func errUnexpectedPayload(stage Stage) *txerr.Failure {
	return &txerr.Failure{Kind: txerr.KindOther, Message: fmt.Sprintf("unexpected payload for stage %s", stage)}
}

func reqInput(idx uint32) wire.TxRequest {
	return wire.TxRequest{RequestType: wire.RequestTypeInput, RequestIndex: &idx}
}

func reqOutput(idx uint32) wire.TxRequest {
	return wire.TxRequest{RequestType: wire.RequestTypeOutput, RequestIndex: &idx}
}

// ---- Phase 1 : verification ----

func (s *Session) handleReq1Input(ack wire.TxAck) (wire.TxRequest, error) {
	in := ack.Input
	if in == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	held := cloneInput(in)
	s.heldInput = held
	writeChecksumInput(s.checksumHash, held)

	if err := s.noteInputForMultisigFingerprint(s.idx1, held); err != nil {
		return wire.TxRequest{}, txerr.ErrMultisigFingerprint(err)
	}

	s.prevInputsCount = 0
	s.prevOutputsCount = 0
	s.stage = StageReq2PrevMeta
	return wire.TxRequest{RequestType: wire.RequestTypeMeta, TxHash: held.PrevHash[:]}, nil
}

func (s *Session) handleReq2PrevMeta(ack wire.TxAck) (wire.TxRequest, error) {
	meta := ack.PrevMeta
	if meta == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	s.prevInputsCount = meta.InputsCount
	s.prevOutputsCount = meta.OutputsCount
	s.prevTxHash = newChecksumHasher()
	s.prevCodec = codec.New(s.prevTxHash, meta.InputsCount, meta.OutputsCount, false)
	s.prevCodec.WriteVersion(nil, meta.Version)
	s.prevLockTime = meta.LockTime

	return s.enterPrevInputLoop()
}

func (s *Session) enterPrevInputLoop() (wire.TxRequest, error) {
	if s.prevInputsCount == 0 {
		return s.enterPrevOutputLoop()
	}
	s.stage = StageReq2PrevInput
	s.idx2 = 0
	return reqInput(0), nil
}

func (s *Session) handleReq2PrevInput(ack wire.TxAck) (wire.TxRequest, error) {
	pi := ack.PrevInput
	if pi == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	s.prevCodec.WriteInput(nil, codec.Input{
		PrevHash:  pi.PrevHash,
		PrevIndex: pi.PrevIndex,
		ScriptSig: pi.ScriptSig,
		Sequence:  pi.Sequence,
	})

	s.idx2++
	if s.idx2 < s.prevInputsCount {
		return reqInput(s.idx2), nil
	}
	return s.enterPrevOutputLoop()
}

func (s *Session) enterPrevOutputLoop() (wire.TxRequest, error) {
	if s.prevOutputsCount == 0 {
		return s.finishPrevTxWalk()
	}
	s.stage = StageReq2PrevOutput
	s.idx2 = 0
	return reqOutput(0), nil
}

func (s *Session) handleReq2PrevOutput(ack wire.TxAck) (wire.TxRequest, error) {
	po := ack.PrevOutput
	if po == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	s.prevCodec.WriteOutput(nil, codec.Output{Amount: po.Amount, ScriptPubKey: po.ScriptPubKey})
	if s.idx2 == s.heldInput.PrevIndex {
		s.toSpend += po.Amount
	}

	s.idx2++
	if s.idx2 < s.prevOutputsCount {
		return reqOutput(s.idx2), nil
	}
	return s.finishPrevTxWalk()
}

// finishPrevTxWalk finalizes the reconstructed previous transaction's
// double-SHA-256 txid and compares it against the referencing input's
// declared prev_hash.
func (s *Session) finishPrevTxWalk() (wire.TxRequest, error) {
	s.prevCodec.WriteLockTime(nil, s.prevLockTime)

	first := sha256.Sum256(s.prevTxHash.Sum(nil))
	txid := sha256.Sum256(first[:])
	if txid != s.heldInput.PrevHash {
		return wire.TxRequest{}, txerr.ErrInvalidPrevhash
	}

	s.idx1++
	if s.idx1 < s.inputsCount {
		s.stage = StageReq1Input
		return reqInput(s.idx1), nil
	}
	return s.enterPhase1OutputWalk()
}

func (s *Session) enterPhase1OutputWalk() (wire.TxRequest, error) {
	if s.outputsCount == 0 {
		return s.finishPhase1Outputs()
	}
	s.idx1 = 0
	s.stage = StageReq3Output
	return reqOutput(0), nil
}

func (s *Session) handleReq3Output(ack wire.TxAck) (wire.TxRequest, error) {
	out := ack.Output
	if out == nil {
		return wire.TxRequest{}, errUnexpectedPayload(s.stage)
	}

	isChange, err := s.classifyChange(out)
	if err != nil {
		return wire.TxRequest{}, txerr.ErrMultisigFingerprint(err)
	}
	if isChange {
		if s.changeSeen {
			return wire.TxRequest{}, txerr.ErrOnlyOneChangeOutput
		}
		s.changeSeen = true
		s.changeSpend += out.Amount
	}
	s.spending += out.Amount

	scriptPubKey, err := script.CompileOutputScriptPubKey(s.coin, out)
	if err != nil {
		return wire.TxRequest{}, txerr.ErrCompileOutputFailed
	}

	if !isChange {
		approved := s.prompter.ConfirmOutput(s.coin.FormatAmount(out.Amount), outputDisplayAddress(out))
		s.log.Debug("prompt outcome", zap.String("prompt", "confirm_output"), zap.Bool("approved", approved))
		if !approved {
			return wire.TxRequest{}, txerr.ErrSigningCancelledByUser
		}
	}

	writeChecksumOutput(s.checksumHash, out.Amount, scriptPubKey)

	s.idx1++
	if s.idx1 < s.outputsCount {
		return reqOutput(s.idx1), nil
	}
	return s.finishPhase1Outputs()
}

func outputDisplayAddress(out *wire.TxOutput) string {
	if out.ScriptType == wire.ScriptTypePayToAddress {
		return out.Address
	}
	return "(multisig output)"
}

// finishPhase1Outputs finalizes checksum_hash into hash_check, runs the
// funds and fee checks, and takes the final confirmation before handing
// off to Phase 2.
func (s *Session) finishPhase1Outputs() (wire.TxRequest, error) {
	copy(s.hashCheck[:], s.checksumHash.Sum(nil))
	s.hashCheckSet = true

	if s.spending > s.toSpend {
		return wire.TxRequest{}, txerr.ErrNotEnoughFunds
	}
	fee := s.toSpend - s.spending

	threshold := estimatedSizeKB(s.inputsCount, s.outputsCount) * s.coin.MaxFeeKB
	if fee > threshold {
		approved := s.prompter.ConfirmFeeOverThreshold(s.coin.FormatAmount(fee))
		s.log.Debug("prompt outcome", zap.String("prompt", "confirm_fee_over_threshold"), zap.Bool("approved", approved))
		if !approved {
			return wire.TxRequest{}, txerr.ErrFeeOverThresholdCancelled
		}
	}

	total := s.toSpend - s.changeSpend
	approved := s.prompter.ConfirmTransaction(s.coin.FormatAmount(total), s.coin.FormatAmount(fee))
	s.log.Debug("prompt outcome", zap.String("prompt", "confirm_transaction"), zap.Bool("approved", approved))
	if !approved {
		return wire.TxRequest{}, txerr.ErrSigningCancelledByUser
	}

	s.idx1 = 0
	s.idx2 = 0
	s.beginPhase2InputWalkState()
	return reqInput(0), nil
}

// estimatedSizeKB implements tx_est_size_kb = ceil((148*inputs + 34*outputs + 10) / 1000).
func estimatedSizeKB(inputsCount, outputsCount uint32) uint64 {
	n := uint64(148)*uint64(inputsCount) + uint64(34)*uint64(outputsCount) + 10
	return (n + 999) / 1000
}
