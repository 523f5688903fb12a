package suggestion

import "fmt"

type Action int

const (
	Accept Action = iota + 1
	Discard
)

// Tokens understood by the remote service. They are part of the external
// wire contract and must not change.
const (
	acceptToken  = "aceptar"
	discardToken = "descartar"
)

// Token returns the literal sent in the "action" field.
func (a Action) Token() (string, error) {
	switch a {
	case Accept:
		return acceptToken, nil
	case Discard:
		return discardToken, nil
	default:
		return "", fmt.Errorf("unknown action %d", int(a))
	}
}

func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case Discard:
		return "discard"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Decision records whether a business user accepts or discards a suggested match.
type Decision struct {
	UUID           string
	BusinessUserID int64
	MatchUserID    int64
	WorkOfferID    int64
	Action         Action
}

type decisionBody struct {
	UUID           string `json:"uuid"`
	MatchUserID    int64  `json:"match_user_id"`
	WorkOfferID    int64  `json:"work_offer_id"`
	BusinessUserID int64  `json:"business_user_id"`
	Action         string `json:"action"`
}

func (d Decision) body() (*decisionBody, error) {
	token, err := d.Action.Token()
	if err != nil {
		return nil, err
	}

	return &decisionBody{
		UUID:           d.UUID,
		MatchUserID:    d.MatchUserID,
		WorkOfferID:    d.WorkOfferID,
		BusinessUserID: d.BusinessUserID,
		Action:         token,
	}, nil
}
