package joypad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/thelolagemann/gomeboy/internal/interrupts"
)

func TestAntiSOCD(t *testing.T) {
	irq := interrupts.NewService()
	j := New(irq)
	j.AntiSOCD = true
	j.Write(0xEF) // select directions (bit4=0)

	j.SetKeyState(Down, true)
	j.CommitKeyStates()

	j.SetKeyState(Up, true)
	j.CommitKeyStates()

	assert.Equal(t, Up, j.committed&(Up|Down))
	assert.Equal(t, uint8(1<<interrupts.JoypadFlag), irq.Flag)
}

func TestRead_NoSelection(t *testing.T) {
	irq := interrupts.NewService()
	j := New(irq)
	j.Write(0x30)
	assert.Equal(t, uint8(0xFF), j.Read())
}

func TestRead_ButtonBank(t *testing.T) {
	irq := interrupts.NewService()
	j := New(irq)
	j.SetKeyState(A, true)
	j.CommitKeyStates()
	j.Write(0xDF) // select buttons only (bit5=0)

	assert.Equal(t, uint8(0xDE), j.Read())
}
