package services

import "log"

// Notifier delivers outbound instructions. The production implementation
// wraps the WhatsApp Cloud API client; LogNotifier is used when no messaging
// credentials are configured.
type Notifier interface {
	Deliver(instruction Instruction) error
}

// LogNotifier logs every instruction instead of sending it.
type LogNotifier struct{}

func (LogNotifier) Deliver(instruction Instruction) error {
	switch instr := instruction.(type) {
	case SendText:
		log.Printf("📤 SendText to %s: %s", instr.To, instr.Body)
	case SendServiceMenu:
		log.Printf("📤 SendServiceMenu to %s", instr.To)
	case TriggerForm:
		log.Printf("📤 TriggerForm to %s: service=%s flow=%s token=%s", instr.To, instr.ServiceType, instr.FormRef, instr.FlowToken)
	case SendPaymentLink:
		log.Printf("📤 SendPaymentLink to %s: order=%s amount=₹%.2f link=%s", instr.To, instr.OrderID, float64(instr.Amount)/100, instr.Link)
	case NotifyPaymentResult:
		log.Printf("📤 NotifyPaymentResult to %s: order=%s success=%v", instr.To, instr.OrderID, instr.Success)
	default:
		log.Printf("📤 outbound instruction: %#v", instruction)
	}
	return nil
}
