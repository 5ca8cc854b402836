package mail

import (
	"errors"
	"fmt"

	"github.com/acsk/AppCheckin-sub000/app/models"
)

// StudentLookup resolves the student a receipt should go to.
type StudentLookup interface {
	GetStudent(studentID uint) (*models.Student, error)
}

// ReceiptNotifier emails a payment receipt after an installment is settled.
// It is a secondary effect of settlement: callers log failures and move on.
type ReceiptNotifier struct {
	students StudentLookup
}

func NewReceiptNotifier(students StudentLookup) *ReceiptNotifier {
	return &ReceiptNotifier{students: students}
}

// PaymentSettled sends the receipt for one settled installment.
func (n *ReceiptNotifier) PaymentSettled(enrollment *models.Enrollment, installment *models.Installment) error {
	student, err := n.students.GetStudent(enrollment.StudentID)
	if err != nil {
		return err
	}
	if student.Email == "" {
		return errors.New("student has no email address")
	}

	subject := "Pagamento confirmado"
	body := fmt.Sprintf(
		"<p>Olá %s,</p>"+
			"<p>Recebemos o pagamento da sua mensalidade no valor de <strong>R$ %s</strong>.</p>"+
			"<p>Sua matrícula está ativa até <strong>%s</strong>.</p>",
		student.Name,
		installment.Amount.StringFixed(2),
		enrollment.EffectiveDueDate().Format("02/01/2006"),
	)
	return SendMail(student.Email, subject, body)
}
