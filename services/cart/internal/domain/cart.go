// Package domain модель корзины и правила синхронизации с каталогом продуктов.
package domain

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrProductNotFound продукт отсутствует в каталоге
	ErrProductNotFound = errors.New("product not found")
	// ErrProductUnavailable продукт снят с продажи или недоступен
	ErrProductUnavailable = errors.New("product unavailable")
)

// LineItem позиция корзины со снимком цены и доступности продукта
type LineItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	IsAvailable bool    `json:"is_available"`
	// ProductVersion версия продукта, из которой взят снимок
	ProductVersion int64     `json:"product_version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LineTotal стоимость позиции
func (li LineItem) LineTotal() float64 {
	return li.UnitPrice * float64(li.Quantity)
}

// ProductSnapshot состояние продукта из product.updated или lookup в каталоге
type ProductSnapshot struct {
	ProductID   string
	Name        string
	Price       float64
	IsAvailable bool
	Version     int64
}

// ApplySnapshot перезаписывает цену и доступность абсолютными значениями.
// Снимок старее сохранённого игнорируется; равная версия даёт то же состояние.
// Возвращает false, если позиция не изменилась.
func (li LineItem) ApplySnapshot(s ProductSnapshot, at time.Time) (LineItem, bool) {
	if s.Version < li.ProductVersion {
		return li, false
	}
	next := li
	next.UnitPrice = s.Price
	next.IsAvailable = s.IsAvailable
	next.ProductVersion = s.Version
	if s.Name != "" {
		next.ProductName = s.Name
	}
	if next == li {
		return li, false
	}
	next.UpdatedAt = at
	return next, true
}

// ApplyRemoval помечает позицию недоступной после снятия продукта с продажи
func (li LineItem) ApplyRemoval(version int64, at time.Time) (LineItem, bool) {
	if version < li.ProductVersion {
		return li, false
	}
	next := li
	next.IsAvailable = false
	next.ProductVersion = version
	if next == li {
		return li, false
	}
	next.UpdatedAt = at
	return next, true
}

// Cart корзина пользователя
type Cart struct {
	UserID string
	Items  []LineItem
}

// Total сумма всех позиций
func (c Cart) Total() float64 {
	var total float64
	for _, li := range c.Items {
		total += li.LineTotal()
	}
	return total
}

// Unavailable id продуктов, недоступных для оформления
func (c Cart) Unavailable() []string {
	var ids []string
	for _, li := range c.Items {
		if !li.IsAvailable {
			ids = append(ids, li.ProductID)
		}
	}
	return ids
}

// Item возвращает позицию по продукту
func (c Cart) Item(productID string) (LineItem, bool) {
	for _, li := range c.Items {
		if li.ProductID == productID {
			return li, true
		}
	}
	return LineItem{}, false
}

// Fingerprint отпечаток содержимого корзины: совпадает, пока корзина не менялась
func (c Cart) Fingerprint() string {
	items := append([]LineItem(nil), c.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	var b strings.Builder
	b.WriteString(c.UserID)
	for _, li := range items {
		b.WriteByte('|')
		b.WriteString(li.ProductID)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(li.Quantity))
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(li.UnitPrice, 'g', -1, 64))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(li.ProductVersion, 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatInt(li.UpdatedAt.UnixNano(), 10))
	}
	return b.String()
}
