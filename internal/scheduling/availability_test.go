package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAppointmentReader struct {
	professionals []Professional
	appointments  []Appointment
}

func (f *fakeAppointmentReader) ListProfessionals(ctx context.Context, businessID string) ([]Professional, error) {
	return f.professionals, nil
}

func (f *fakeAppointmentReader) ListByDate(ctx context.Context, businessID string, date time.Time) ([]Appointment, error) {
	return f.appointments, nil
}

func (f *fakeAppointmentReader) CountConflicts(ctx context.Context, professionalID uuid.UUID, date time.Time, tm string) (int64, error) {
	var count int64
	for _, a := range f.appointments {
		if a.ProfessionalID == professionalID && a.Time == tm &&
			(a.Status == StatusScheduled || a.Status == StatusConfirmed) {
			count++
		}
	}
	return count, nil
}

func TestTimeGrid(t *testing.T) {
	grid := DefaultBusinessHours.TimeGrid()
	require.Len(t, grid, 20)
	assert.Equal(t, "08:00", grid[0])
	assert.Equal(t, "08:30", grid[1])
	assert.Equal(t, "17:30", grid[len(grid)-1])
}

func TestTimeGridCustomStep(t *testing.T) {
	grid := BusinessHours{Open: "09:00", Close: "12:00", SlotMinutes: 60}.TimeGrid()
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, grid)
}

func TestAvailableSlotsExcludesBookedTimes(t *testing.T) {
	ana := Professional{ID: uuid.New(), Name: "Ana"}
	bia := Professional{ID: uuid.New(), Name: "Bia"}
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	reader := &fakeAppointmentReader{
		professionals: []Professional{ana, bia},
		appointments: []Appointment{
			{ProfessionalID: ana.ID, Time: "09:00", Status: StatusScheduled},
			{ProfessionalID: ana.ID, Time: "10:30", Status: StatusConfirmed},
			{ProfessionalID: bia.ID, Time: "09:00", Status: StatusCancelled},
		},
	}

	engine := NewEngine(reader, DefaultBusinessHours)
	slots, err := engine.AvailableSlots(context.Background(), "biz-1", date, nil)
	require.NoError(t, err)

	// 20 grid slots per professional, Ana loses two. The cancelled booking at
	// Bia 09:00 does not block the slot.
	assert.Len(t, slots, 38)
	for _, slot := range slots {
		if slot.ProfessionalID == ana.ID {
			assert.NotEqual(t, "09:00", slot.Time)
			assert.NotEqual(t, "10:30", slot.Time)
		}
	}
}

func TestAvailableSlotsOrdering(t *testing.T) {
	ana := Professional{ID: uuid.New(), Name: "Ana"}
	bia := Professional{ID: uuid.New(), Name: "Bia"}
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	engine := NewEngine(&fakeAppointmentReader{professionals: []Professional{ana, bia}}, DefaultBusinessHours)
	slots, err := engine.AvailableSlots(context.Background(), "biz-1", date, nil)
	require.NoError(t, err)
	require.Len(t, slots, 40)

	// Professional enumeration order first, ascending time within each.
	assert.Equal(t, "Ana", slots[0].Professional)
	assert.Equal(t, "08:00", slots[0].Time)
	assert.Equal(t, "Ana", slots[19].Professional)
	assert.Equal(t, "17:30", slots[19].Time)
	assert.Equal(t, "Bia", slots[20].Professional)
	assert.Equal(t, "08:00", slots[20].Time)
}

func TestAvailableSlotsProfessionalFilter(t *testing.T) {
	ana := Professional{ID: uuid.New(), Name: "Ana"}
	bia := Professional{ID: uuid.New(), Name: "Bia"}
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	engine := NewEngine(&fakeAppointmentReader{professionals: []Professional{ana, bia}}, DefaultBusinessHours)
	slots, err := engine.AvailableSlots(context.Background(), "biz-1", date, &bia.ID)
	require.NoError(t, err)
	require.Len(t, slots, 20)
	for _, slot := range slots {
		assert.Equal(t, bia.ID, slot.ProfessionalID)
	}
}

func TestIsSlotFree(t *testing.T) {
	ana := Professional{ID: uuid.New(), Name: "Ana"}
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	reader := &fakeAppointmentReader{
		professionals: []Professional{ana},
		appointments: []Appointment{
			{ProfessionalID: ana.ID, Time: "14:00", Status: StatusScheduled},
			{ProfessionalID: ana.ID, Time: "15:00", Status: StatusCancelled},
		},
	}
	engine := NewEngine(reader, DefaultBusinessHours)

	free, err := engine.IsSlotFree(context.Background(), ana.ID, date, "14:00")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = engine.IsSlotFree(context.Background(), ana.ID, date, "15:00")
	require.NoError(t, err)
	assert.True(t, free)

	free, err = engine.IsSlotFree(context.Background(), ana.ID, date, "16:00")
	require.NoError(t, err)
	assert.True(t, free)
}
