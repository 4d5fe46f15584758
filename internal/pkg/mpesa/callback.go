package mpesa

import "encoding/json"

// CallbackEnvelope is the JSON body Daraja POSTs to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback *StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback is the asynchronous result of one STK push. ResultCode 0 means
// the payment completed; anything else is a failure or cancellation.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem values arrive as strings or numbers depending on the field,
// so Value stays raw until looked up by name.
type MetadataItem struct {
	Name  string          `json:"Name"`
	Value json.RawMessage `json:"Value,omitempty"`
}

// ParseCallback decodes a raw callback body.
func ParseCallback(raw []byte) (*CallbackEnvelope, error) {
	var env CallbackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// MetadataValue extracts a named metadata entry as a string. Absent entries
// yield the empty string.
func (m *CallbackMetadata) MetadataValue(name string) string {
	if m == nil {
		return ""
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		if len(item.Value) == 0 {
			return ""
		}
		var s string
		if err := json.Unmarshal(item.Value, &s); err == nil {
			return s
		}
		// Numeric values (phone numbers, dates) are kept verbatim.
		return string(item.Value)
	}
	return ""
}
