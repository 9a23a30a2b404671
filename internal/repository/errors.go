package repository

import "errors"

// ErrSlotTaken живое бронирование на эту дату и час уже существует
var ErrSlotTaken = errors.New("repository: slot already taken")

// LiveSlotConstraint имя частичного уникального индекса по (booking_date, booking_hour)
const LiveSlotConstraint = "bookings_live_slot_key"
