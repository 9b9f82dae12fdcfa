package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Configuration errors (100-199)
	ErrCodeInvalidConfiguration ErrorCode = 100
	ErrCodeUnknownConfigKey     ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound   ErrorCode = 200
	ErrCodeQueryFailed    ErrorCode = 201
	ErrCodeDataLoadFailed ErrorCode = 202
	ErrCodeNoCommonBars   ErrorCode = 203

	// Sizing/entry errors (300-399)
	ErrCodeInvalidRiskUnit ErrorCode = 300
	ErrCodeInvalidQuantity ErrorCode = 301

	// Ledger errors (400-499)
	ErrCodeLedgerInitFailed  ErrorCode = 400
	ErrCodeLedgerWriteFailed ErrorCode = 401
	ErrCodeInvalidEvent      ErrorCode = 402

	// Engine errors (500-599)
	ErrCodeEngineInitFailed ErrorCode = 500
	ErrCodeEngineNotReady   ErrorCode = 501
	ErrCodeNoSymbols        ErrorCode = 502

	// Market data errors (600-699)
	ErrCodeMarketDataFetchFailed ErrorCode = 600
	ErrCodeMarketDataParseFailed ErrorCode = 601
	ErrCodeInvalidSymbol         ErrorCode = 602
	ErrCodeInvalidInterval       ErrorCode = 603
)
