package state

import tele "gopkg.in/telebot.v4"

const stateKey = "fsm_state"

// WithState records the sender's state as the update arrived, for handler logs.
func WithState(mgr Manager) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if sender := c.Sender(); sender != nil {
				c.Set(stateKey, mgr.GetState(sender.ID))
			}
			return next(c)
		}
	}
}

// StateFrom returns the state stored by WithState.
func StateFrom(c tele.Context) (State, bool) {
	s, ok := c.Get(stateKey).(State)
	return s, ok
}
