package chat

import "strings"

// Identity is the signed-in user, loaded from the persisted session state.
type Identity struct {
	UserID   string `json:"userId"`
	Role     Role   `json:"role"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Participants names both sides of a one-to-one tutoring conversation.
type Participants struct {
	GuruID    string
	StudentID string
}

// RoomID joins the two ids guru first, student second. Both clients derive it
// on their own without a handshake, so the order must never depend on who asks.
func RoomID(guruID, studentID string) string {
	return guruID + "_" + studentID
}

func (p Participants) RoomID() string {
	return RoomID(p.GuruID, p.StudentID)
}

// ParticipantsFor places selfID and counterpartID by the caller's role.
func ParticipantsFor(role Role, selfID, counterpartID string) (Participants, error) {
	selfID = strings.TrimSpace(selfID)
	counterpartID = strings.TrimSpace(counterpartID)
	if selfID == "" || counterpartID == "" {
		return Participants{}, ErrMissingPartner
	}

	switch role {
	case RoleGuru:
		return Participants{GuruID: selfID, StudentID: counterpartID}, nil
	case RoleStudent:
		return Participants{GuruID: counterpartID, StudentID: selfID}, nil
	default:
		return Participants{}, ErrInvalidRole
	}
}
