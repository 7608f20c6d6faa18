package handler

import (
	"go.uber.org/zap"

	"github.com/palemoky/call-break/internal/apperrors"
	"github.com/palemoky/call-break/internal/protocol"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/types"
)

// handleBid 叫分
func (h *Handler) handleBid(client types.ClientInterface, msg *protocol.Message) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}

	payload, err := codec.ParsePayload[protocol.BidPayload](msg)
	if err != nil {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if err := r.Bid(client.GetID(), payload.Value); err != nil {
		sendError(client, err)
	}
}

// handlePlayCard 出牌
func (h *Handler) handlePlayCard(client types.ClientInterface, msg *protocol.Message) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}

	payload, err := codec.ParsePayload[protocol.PlayCardPayload](msg)
	if err != nil || payload.CardID == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	if err := r.PlayCard(client.GetID(), payload.CardID); err != nil {
		h.log.Debug("🃏 出牌被拒绝",
			zap.String("player", client.GetName()),
			zap.String("card", payload.CardID),
			zap.Error(err))
		sendError(client, err)
	}
}

// handleNextRound 提前进入下一局
func (h *Handler) handleNextRound(client types.ClientInterface) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}
	if err := r.NextRound(client.GetID()); err != nil {
		sendError(client, err)
	}
}

// handleRestart 重开比赛
func (h *Handler) handleRestart(client types.ClientInterface) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}
	if err := r.Restart(client.GetID()); err != nil {
		sendError(client, err)
	}
}

// handleReaction 表情，仅在房间内广播，不影响对局
func (h *Handler) handleReaction(client types.ClientInterface, msg *protocol.Message) {
	r, err := h.currentRoom(client)
	if err != nil {
		sendError(client, err)
		return
	}

	payload, err := codec.ParsePayload[protocol.ReactionPayload](msg)
	if err != nil || payload.Type == "" {
		client.SendMessage(codec.NewErrorMessage(protocol.ErrCodeInvalidMsg))
		return
	}

	info := r.GetPlayerInfo(client.GetID())
	if info.ID == "" {
		sendError(client, apperrors.ErrNotInRoom)
		return
	}
	payload.PlayerID = info.ID
	payload.Seat = info.Seat
	r.Broadcast(codec.MustNewMessage(protocol.MsgReaction, payload))
}
