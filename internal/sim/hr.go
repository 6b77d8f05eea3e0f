// Staffing & labor pass: morale and training dynamics, and the strike state
// machine (none → striking → resolved). Listed last in the tick order; its
// effects gate production and logistics on the following day.
package sim

import (
	"fmt"

	"github.com/vantagegames/magnate/internal/ecs"
)

const (
	strikeMoraleFloor   = 30.0  // below this, daily strike risk accrues
	strikeRiskPerPoint  = 0.004 // chance per morale point under the floor
	criticalMoraleFloor = 15.0
	strikeMinDays       = 3
	strikeMaxDays       = 10
)

// hrDaily relaxes morale/training and steps the strike machine.
func (w *World) hrDaily() {
	w.Staffing.Each(func(e ecs.Entity, staff *Staffing) {
		b := w.Buildings.Get(e)
		if b == nil {
			return
		}
		city := w.Cities.Get(b.CityRef)
		co := w.Companies.Get(b.OwnerRef)

		// Morale chases a target set by pay against the local wage and
		// company policy.
		cityWage := 3000.0
		if city != nil {
			cityWage = city.RealWage
		}
		target := 50.0
		if cityWage > 0 {
			target += (staff.Wage/cityWage - 1) * 60
		}
		if co != nil {
			if co.Policies&PolicyBenefits != 0 {
				target += 10
			}
			if co.Directive == DirectiveEfficiency {
				target -= 5 // cost squeezes are felt on the floor
			}
		}
		if s := w.Strikes.Get(e); s.Active(w.Tick) {
			target -= 15
		}
		staff.Morale += (ecs.Clamp100(target) - staff.Morale) * 0.03
		staff.Morale = ecs.Clamp100(staff.Morale)

		// Training builds under the training policy, otherwise erodes.
		if co != nil && co.Policies&PolicyTraining != 0 {
			staff.Training = ecs.Clamp100(staff.Training + 0.08)
		} else {
			staff.Training = ecs.Clamp100(staff.Training - 0.02)
		}

		w.stepStrike(e, b, staff, co)
	})
}

// stepStrike triggers, sustains, and resolves labor action per building.
func (w *World) stepStrike(e ecs.Entity, b *Building, staff *Staffing, co *Company) {
	strike := w.Strikes.Get(e)

	// Resolution: duration elapsed.
	if strike != nil && strike.Severity != StrikeNone && !strike.Active(w.Tick) {
		if strike.Severity == StrikeCritical {
			b.Operational = true
		}
		*strike = Strike{}
		staff.Morale = ecs.Clamp100(staff.Morale + 10)
		if co != nil {
			w.Notify(Notification{Kind: "strike_resolved", Building: e, Company: b.OwnerRef,
				Text: fmt.Sprintf("workers at a %s site return to work", co.Name)})
		}
		return
	}
	if strike.Active(w.Tick) {
		return
	}

	// Trigger: probabilistic once morale falls under the floor.
	if staff.Morale >= strikeMoraleFloor {
		return
	}
	risk := (strikeMoraleFloor - staff.Morale) * strikeRiskPerPoint
	if !w.Chance(risk) {
		return
	}

	severity := StrikeMinor
	if staff.Morale < criticalMoraleFloor || w.Chance(0.25) {
		severity = StrikeCritical
	}
	duration := strikeMinDays + w.Intn(strikeMaxDays-strikeMinDays+1)
	w.Strikes.Set(e, Strike{
		Severity:     severity,
		StartTick:    w.Tick,
		DurationDays: duration,
	})
	if severity == StrikeCritical {
		b.Operational = false
	}
	if co != nil {
		kind := "minor"
		if severity == StrikeCritical {
			kind = "critical"
		}
		w.PushNews("labor", fmt.Sprintf("%s strike breaks out at a %s facility", kind, co.Name))
		w.Notify(Notification{Kind: "strike", Building: e, Company: b.OwnerRef,
			Text: fmt.Sprintf("a %s strike halts work for %d days", kind, duration)})
	}
}
