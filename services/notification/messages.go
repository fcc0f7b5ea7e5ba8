package notification

import (
	"fmt"
	"strings"
)

const displayLayout = "02/01/2006 15:04"

func OTPMessage(code string, expiryMins int) string {
	if expiryMins <= 0 {
		expiryMins = 5
	}
	return fmt.Sprintf("Tu código de verificación Stylo es: %s. Válido por %d minutos.", code, expiryMins)
}

func ConfirmationMessage(n BookingNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola %s! 👋\n\n", n.ClientName)
	b.WriteString("Tu cita ha sido confirmada:\n")
	fmt.Fprintf(&b, "📋 Servicio: %s\n", n.ServiceName)
	fmt.Fprintf(&b, "👤 Profesional: %s\n", n.StaffName)
	fmt.Fprintf(&b, "📅 Fecha: %s\n", n.Start.Format(displayLayout))
	fmt.Fprintf(&b, "📍 Local: %s\n\n", n.BranchName)
	b.WriteString("¡Te esperamos!")
	return b.String()
}

func ReminderMessage(n BookingNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "¡Hola %s! 👋\n\n", n.ClientName)
	b.WriteString("Te recordamos tu cita para mañana:\n")
	fmt.Fprintf(&b, "📋 Servicio: %s\n", n.ServiceName)
	fmt.Fprintf(&b, "📅 Fecha: %s\n", n.Start.Format(displayLayout))
	fmt.Fprintf(&b, "📍 Local: %s\n\n", n.BranchName)
	b.WriteString("¿Necesitas reprogramar? Responde a este mensaje.")
	return b.String()
}

// ConfirmationEmail returns the subject and HTML body of the confirmation e-mail.
func ConfirmationEmail(n BookingNotice) (string, string) {
	subject := fmt.Sprintf("Tu cita en %s está confirmada", n.BusinessName)
	body := fmt.Sprintf(`<h2>¡Hola %s!</h2>
<p>Tu cita ha sido confirmada.</p>
<ul>
<li><strong>Servicio:</strong> %s</li>
<li><strong>Profesional:</strong> %s</li>
<li><strong>Fecha:</strong> %s</li>
<li><strong>Local:</strong> %s, %s</li>
<li><strong>Precio:</strong> S/ %s</li>
</ul>
<p>¡Te esperamos!</p>`,
		n.ClientName, n.ServiceName, n.StaffName, n.Start.Format(displayLayout), n.BranchName, n.BranchAddress, n.Price)
	return subject, body
}
