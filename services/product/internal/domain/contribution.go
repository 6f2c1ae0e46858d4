package domain

// StatusPublished единственный статус отзыва, учитываемый в рейтинге
const StatusPublished = "Published"

// StatusDeleted статус мягко удалённого отзыва
const StatusDeleted = "Deleted"

// Contribution вклад отзыва в рейтинг продукта.
// Хранится рядом с агрегатом и делает применение событий идемпотентным:
// повторная доставка сравнивается с уже применённым состоянием.
type Contribution struct {
	ReviewID  string
	ProductID string
	Rating    int
	// Counted вклад учтён в агрегате (отзыв опубликован)
	Counted bool
	// Deleted tombstone: повторные Created/Updated после удаления игнорируются
	Deleted bool
}

// Decision результат применения события отзыва
type Decision struct {
	Rating       Rating
	Contribution Contribution
	// Changed false = дубликат или событие без эффекта
	Changed bool
}

func unchanged(r Rating, c Contribution) Decision {
	return Decision{Rating: r, Contribution: c}
}

// ApplyCreated отзыв создан. Повтор (вклад уже есть) не меняет агрегат.
func ApplyCreated(r Rating, existing *Contribution, reviewID, productID string, rating int, status string) Decision {
	if existing != nil {
		return unchanged(r, *existing)
	}
	c := Contribution{ReviewID: reviewID, ProductID: productID, Rating: rating}
	if status == "" || status == StatusPublished {
		c.Counted = true
		r = r.Add(rating)
	}
	return Decision{Rating: r, Contribution: c, Changed: true}
}

// ApplyUpdated изменена оценка. Старым значением считается сохранённый вклад,
// а не OldRating события: так повторная доставка ничего не меняет.
// Без вклада (Created ещё не применён) оценка добавляется как новая.
func ApplyUpdated(r Rating, existing *Contribution, reviewID, productID string, newRating int) (Decision, error) {
	if existing == nil {
		return ApplyCreated(r, nil, reviewID, productID, newRating, StatusPublished), nil
	}
	c := *existing
	if c.Deleted || c.Rating == newRating {
		return unchanged(r, c), nil
	}
	if c.Counted {
		next, err := r.Replace(c.Rating, newRating)
		if err != nil {
			return Decision{}, err
		}
		r = next
	}
	c.Rating = newRating
	return Decision{Rating: r, Contribution: c, Changed: true}, nil
}

// ApplyStatusChanged модерация: переход в Published = добавление,
// уход из Published = удаление вклада.
func ApplyStatusChanged(r Rating, existing *Contribution, reviewID, productID string, rating int, newStatus string) Decision {
	counted := newStatus == StatusPublished
	deleted := newStatus == StatusDeleted
	if existing == nil {
		c := Contribution{ReviewID: reviewID, ProductID: productID, Rating: rating, Deleted: deleted}
		if counted {
			c.Counted = true
			r = r.Add(rating)
		}
		return Decision{Rating: r, Contribution: c, Changed: true}
	}

	c := *existing
	if c.Deleted || (c.Counted == counted && !deleted) {
		return unchanged(r, c)
	}
	switch {
	case counted:
		r = r.Add(c.Rating)
	case c.Counted:
		r = r.Remove(c.Rating)
	}
	c.Counted = counted
	c.Deleted = deleted
	return Decision{Rating: r, Contribution: c, Changed: true}
}

// ApplyDeleted отзыв удалён: учтённый вклад вычитается, остаётся tombstone
func ApplyDeleted(r Rating, existing *Contribution, reviewID, productID string, rating int) Decision {
	if existing == nil {
		return Decision{
			Rating:       r,
			Contribution: Contribution{ReviewID: reviewID, ProductID: productID, Rating: rating, Deleted: true},
			Changed:      true,
		}
	}
	c := *existing
	if c.Deleted {
		return unchanged(r, c)
	}
	if c.Counted {
		r = r.Remove(c.Rating)
	}
	c.Counted = false
	c.Deleted = true
	return Decision{Rating: r, Contribution: c, Changed: true}
}
