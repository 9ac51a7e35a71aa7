package domain

import (
	"crypto/ed25519"
	"encoding/binary"
)

const paymentMessagePrefix = "bazaar:process-payment:v1"

// PaymentMessage is the canonical byte string a payer signs to authorize a call.
// It covers the arguments and every referenced account in order.
func PaymentMessage(call PaymentCall) []byte {
	req := call.Request
	size := len(paymentMessagePrefix) + 8 + 3*IdentitySize + 3*4 +
		8*len(req.Amounts) + IdentitySize*(len(req.Recipients)+len(call.DestinationAccounts))
	msg := make([]byte, 0, size)

	msg = append(msg, paymentMessagePrefix...)
	msg = append(msg, call.Payer[:]...)
	msg = append(msg, call.PayerTokenAccount[:]...)
	msg = append(msg, call.TokenProgram[:]...)
	msg = binary.LittleEndian.AppendUint64(msg, req.OrderID)

	msg = binary.LittleEndian.AppendUint32(msg, uint32(len(req.Amounts)))
	for _, a := range req.Amounts {
		msg = binary.LittleEndian.AppendUint64(msg, a)
	}
	msg = binary.LittleEndian.AppendUint32(msg, uint32(len(req.Recipients)))
	for _, r := range req.Recipients {
		msg = append(msg, r[:]...)
	}
	msg = binary.LittleEndian.AppendUint32(msg, uint32(len(call.DestinationAccounts)))
	for _, d := range call.DestinationAccounts {
		msg = append(msg, d[:]...)
	}
	return msg
}

// SignPayment signs the canonical payment message with the payer's key
func SignPayment(key ed25519.PrivateKey, call PaymentCall) []byte {
	return ed25519.Sign(key, PaymentMessage(call))
}

// VerifyPaymentSignature checks that the payer signed the call
func VerifyPaymentSignature(call PaymentCall, signature []byte) error {
	if len(signature) != ed25519.SignatureSize {
		return ErrInvalidSignature
	}
	if !ed25519.Verify(ed25519.PublicKey(call.Payer[:]), PaymentMessage(call), signature) {
		return ErrInvalidSignature
	}
	return nil
}
