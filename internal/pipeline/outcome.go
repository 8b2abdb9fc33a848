package pipeline

// Outcome is the internal, string-valued terminal status a worker
// publishes. The root package's TransferResult is its public counterpart;
// keeping the two separate lets the pipeline package stay independent of
// the root package (which imports pipeline).
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeUsbTransferFailure Outcome = "usb_transfer_failure"
	OutcomeBufferUnderflow    Outcome = "buffer_underflow"
	OutcomeSequenceMismatch   Outcome = "sequence_mismatch"
	OutcomeVerificationError  Outcome = "verification_error"
	OutcomeFileWriteError     Outcome = "file_write_error"
	OutcomeProgramError       Outcome = "program_error"
	OutcomeForcedAbort        Outcome = "forced_abort"
)
