package enums

// LedgerEventType maps to ledger_event_type_enum. Settlement credits are
// written once per completed engagement; adjustments are operator entries.
type LedgerEventType string

const (
	LedgerEventTypeSettlementCredit LedgerEventType = "settlement_credit"
	LedgerEventTypeAdjustment       LedgerEventType = "adjustment"
)

var ledgerEventTypes = []LedgerEventType{LedgerEventTypeSettlementCredit, LedgerEventTypeAdjustment}

func (t LedgerEventType) IsValid() bool { return member(ledgerEventTypes, t) }

func ParseLedgerEventType(value string) (LedgerEventType, error) {
	return parseStrict(ledgerEventTypes, "ledger event type", value)
}
