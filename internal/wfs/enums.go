package wfs

import "fmt"

// AllSome is the lockAction of a LockFeature and the releaseAction of a
// Transaction.
type AllSome string

const (
	AllSomeAll  AllSome = "ALL"
	AllSomeSome AllSome = "SOME"
)

func ParseAllSome(s string) (AllSome, error) {
	switch v := AllSome(s); v {
	case AllSomeAll, AllSomeSome:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q is not a valid AllSomeType", ErrInvalidLiteral, s)
}

func (v AllSome) String() string { return string(v) }

func (v AllSome) MarshalText() ([]byte, error) {
	if _, err := ParseAllSome(string(v)); err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (v *AllSome) UnmarshalText(b []byte) error {
	parsed, err := ParseAllSome(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (AllSome) enumeration() {}

// ResultType selects whether GetFeature returns features or only their count.
type ResultType string

const (
	ResultTypeResults ResultType = "results"
	ResultTypeHits    ResultType = "hits"
)

func ParseResultType(s string) (ResultType, error) {
	switch v := ResultType(s); v {
	case ResultTypeResults, ResultTypeHits:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q is not a valid ResultTypeType", ErrInvalidLiteral, s)
}

func (v ResultType) String() string { return string(v) }

func (v ResultType) MarshalText() ([]byte, error) {
	if _, err := ParseResultType(string(v)); err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (v *ResultType) UnmarshalText(b []byte) error {
	parsed, err := ParseResultType(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (ResultType) enumeration() {}

// IdentifierGeneration tells the server how to assign ids to inserted
// features.
type IdentifierGeneration string

const (
	IDGenUseExisting      IdentifierGeneration = "UseExisting"
	IDGenReplaceDuplicate IdentifierGeneration = "ReplaceDuplicate"
	IDGenGenerateNew      IdentifierGeneration = "GenerateNew"
)

func ParseIdentifierGeneration(s string) (IdentifierGeneration, error) {
	switch v := IdentifierGeneration(s); v {
	case IDGenUseExisting, IDGenReplaceDuplicate, IDGenGenerateNew:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q is not a valid IdentifierGenerationOptionType", ErrInvalidLiteral, s)
}

func (v IdentifierGeneration) String() string { return string(v) }

func (v IdentifierGeneration) MarshalText() ([]byte, error) {
	if _, err := ParseIdentifierGeneration(string(v)); err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (v *IdentifierGeneration) UnmarshalText(b []byte) error {
	parsed, err := ParseIdentifierGeneration(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (IdentifierGeneration) enumeration() {}

// OperationType names an operation a feature type supports in capabilities.
type OperationType string

const (
	OperationInsert       OperationType = "Insert"
	OperationUpdate       OperationType = "Update"
	OperationDelete       OperationType = "Delete"
	OperationQuery        OperationType = "Query"
	OperationLock         OperationType = "Lock"
	OperationGetGmlObject OperationType = "GetGmlObject"
)

func ParseOperationType(s string) (OperationType, error) {
	switch v := OperationType(s); v {
	case OperationInsert, OperationUpdate, OperationDelete, OperationQuery, OperationLock, OperationGetGmlObject:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q is not a valid OperationType", ErrInvalidLiteral, s)
}

func (v OperationType) String() string { return string(v) }

func (v OperationType) MarshalText() ([]byte, error) {
	if _, err := ParseOperationType(string(v)); err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (v *OperationType) UnmarshalText(b []byte) error {
	parsed, err := ParseOperationType(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (OperationType) enumeration() {}
