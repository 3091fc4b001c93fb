package notify

import (
	"bytes"
	"fmt"
	"html/template"

	"printshop/internal/models"
)

var adminTmpl = template.Must(template.New("admin").Funcs(template.FuncMap{
	"mb": func(size int64) string { return fmt.Sprintf("%.2f", float64(size)/1024/1024) },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"></head>
<body>
<h1>Новый заказ {{.Order.OrderNumber}}</h1>
<h3>Товар</h3>
<p>{{.Order.Product.Name}}, {{.Order.Product.ColorName}}, размер {{.Order.Product.Size}}, {{.Order.Product.Price}} ₽</p>
<p>Статус: {{.Order.Status}}</p>
<h3>Клиент</h3>
<p>{{.Order.Customer.FullName}}<br>
<a href="mailto:{{.Order.Customer.Email}}">{{.Order.Customer.Email}}</a><br>
<a href="tel:{{.Order.Customer.Phone}}">{{.Order.Customer.Phone}}</a><br>
{{.Order.Customer.City}}, {{.Order.Customer.Address}}</p>
{{if .Order.Customer.Notes}}<p>Комментарии: {{.Order.Customer.Notes}}</p>{{end}}
<h3>Стоимость</h3>
<p>Товар: {{.Order.Pricing.ProductPrice}} ₽<br>
Печать: {{.Order.Pricing.PrintingCost}} ₽<br>
Доставка: {{.Order.Pricing.ShippingCost}} ₽</p>
<p><strong>ИТОГО: {{.Order.Pricing.TotalPrice}} ₽</strong></p>
<h3>Файл дизайна</h3>
<p>{{.Order.Design.OriginalName}} ({{mb .Order.Design.Size}} МБ, {{.Order.Design.Mimetype}}), прикреплен к письму.</p>
<p>ID заказа: {{.Order.ID}}</p>
</body></html>`))

var customerTmpl = template.Must(template.New("customer").Parse(`<!DOCTYPE html>
<html><head><meta charset="UTF-8"></head>
<body>
<h1>Спасибо за ваш заказ!</h1>
<p>Здравствуйте, <strong>{{.Order.Customer.FullName}}</strong>!</p>
<p>Заказ {{.Order.OrderNumber}} принят в обработку.</p>
<p>{{.Order.Product.Name}}, {{.Order.Product.ColorName}}, размер {{.Order.Product.Size}}<br>
Адрес доставки: {{.Order.Customer.City}}, {{.Order.Customer.Address}}</p>
<p><strong>Общая стоимость: {{.Order.Pricing.TotalPrice}} ₽</strong></p>
<p>Мы проверим ваш дизайн в течение 24 часов. Предполагаемая дата доставки: <strong>{{.Delivery}}</strong></p>
</body></html>`))

type emailData struct {
	Order    *models.Order
	Delivery string
}

// RenderAdminEmail builds the operator notification with the design file attached.
func RenderAdminEmail(order *models.Order, to string) (Message, error) {
	var buf bytes.Buffer
	if err := adminTmpl.Execute(&buf, emailData{Order: order}); err != nil {
		return Message{}, fmt.Errorf("failed to render admin email: %w", err)
	}
	return Message{
		To:       to,
		Subject:  fmt.Sprintf("Новый заказ %s", order.OrderNumber),
		HTMLBody: buf.String(),
		Attachments: []Attachment{
			{Name: order.Design.OriginalName, Path: order.Design.Path},
		},
	}, nil
}

// RenderCustomerEmail builds the confirmation sent to the customer.
func RenderCustomerEmail(order *models.Order, delivery, replyTo string) (Message, error) {
	var buf bytes.Buffer
	if err := customerTmpl.Execute(&buf, emailData{Order: order, Delivery: delivery}); err != nil {
		return Message{}, fmt.Errorf("failed to render customer email: %w", err)
	}
	return Message{
		To:       order.Customer.Email,
		Subject:  fmt.Sprintf("Подтверждение заказа %s", order.OrderNumber),
		HTMLBody: buf.String(),
		ReplyTo:  replyTo,
	}, nil
}
