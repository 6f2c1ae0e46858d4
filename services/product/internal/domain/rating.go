package domain

import (
	"errors"
	"math"
)

// ErrEmptyRating замена оценки в агрегате без учтённых отзывов
var ErrEmptyRating = errors.New("rating has no counted reviews")

// Rating агрегат рейтинга продукта.
// Mean хранится с полной точностью, округление только при чтении (Rounded).
type Rating struct {
	Mean  float64
	Count int
}

// Add учитывает новую оценку
func (r Rating) Add(v int) Rating {
	count := r.Count + 1
	return Rating{
		Mean:  (r.Mean*float64(r.Count) + float64(v)) / float64(count),
		Count: count,
	}
}

// Replace заменяет учтённую оценку old на new без изменения Count
func (r Rating) Replace(old, new int) (Rating, error) {
	if r.Count == 0 {
		return r, ErrEmptyRating
	}
	return Rating{
		Mean:  r.Mean + float64(new-old)/float64(r.Count),
		Count: r.Count,
	}, nil
}

// Remove исключает учтённую оценку; при Count == 0 агрегат обнуляется
func (r Rating) Remove(v int) Rating {
	if r.Count <= 1 {
		return Rating{}
	}
	count := r.Count - 1
	return Rating{
		Mean:  (r.Mean*float64(r.Count) - float64(v)) / float64(count),
		Count: count,
	}
}

// Rounded среднее, округлённое до 2 знаков (для API и колонки rating)
func (r Rating) Rounded() float64 {
	return math.Round(r.Mean*100) / 100
}

// FromTotals агрегат из суммы и числа оценок (пересчёт по вкладам)
func FromTotals(sum, count int) Rating {
	if count <= 0 {
		return Rating{}
	}
	return Rating{Mean: float64(sum) / float64(count), Count: count}
}

// Drifted сообщает, что агрегат отличается от эталона больше, чем на погрешность float
func (r Rating) Drifted(expected Rating) bool {
	return r.Count != expected.Count || math.Abs(r.Mean-expected.Mean) > 1e-9
}
