package model

type OTP struct {
	ID        string
	Email     string
	Code      string
	ExpiresAt int64
	Ctime     int64
}

func (o *OTP) View() *OTPView {
	if o == nil {
		return nil
	}
	return &OTPView{Email: o.Email, ExpiresAt: o.ExpiresAt}
}

// OTPView omits the code; the code only travels by mail.
type OTPView struct {
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expiresAt"`
}
