package supervisor

import "github.com/lguibr/sc2-proxy/game"

// handleRemoteRequest implements the Supervisor-side behavior of spec
// §4.9's Remote Control requests.
func (s *Supervisor) handleRemoteRequest(req RemoteRequest) RemoteResponse {
	switch req.Kind {
	case ReqQuit:
		return RemoteResponse{Kind: RespQuit}

	case ReqPing:
		return RemoteResponse{Kind: RespPing, PingSeq: req.PingSeq}

	case ReqGetConfig:
		cfg := s.cfg
		return RemoteResponse{Kind: RespGetConfig, Config: &cfg}

	case ReqSetConfig:
		if req.Config == nil {
			return ErrorResponse("SetConfig requires a config payload")
		}
		s.cfg = *req.Config
		cfg := s.cfg
		return RemoteResponse{Kind: RespSetConfig, Config: &cfg}

	case ReqGetPlaylist:
		items := make([]PlaylistItem, 0, len(s.playlist))
		for _, e := range s.playlist {
			items = append(items, PlaylistItem{ClientID: string(e.id), IsReady: e.isReady()})
		}
		return RemoteResponse{Kind: RespPlaylist, Playlist: items}

	case ReqDropPlaylistItem:
		s.dropPlaylistByID(req.ClientID)
		return RemoteResponse{Kind: RespDropPlaylist}

	case ReqClearPlaylist:
		for _, e := range s.playlist {
			_ = e.conn.Close()
		}
		s.playlist = nil
		return RemoteResponse{Kind: RespClearPlaylist}

	case ReqCreateLobby:
		if err := s.cfg.Check(s.resolver); err != nil {
			return ErrorResponse("%v", err)
		}
		id := s.allocGameID()
		s.lobbies[id] = game.NewLobby(id, s.cfg, s.resolver, s.ports, s.logger)
		s.lobbyOrder = append(s.lobbyOrder, id)
		return RemoteResponse{Kind: RespGameID, GameID: id}

	case ReqAddToLobby:
		return s.handleAddToLobby(req.GameID, req.ClientID)

	case ReqStartGame:
		return s.handleStartGame(req.GameID)

	default:
		return ErrorResponse("unknown request kind %q", req.Kind)
	}
}

func (s *Supervisor) dropPlaylistByID(id ClientID) {
	i := s.findPlaylistIndex(id)
	if i < 0 {
		return
	}
	_ = s.playlist[i].conn.Close()
	s.removeFromPlaylist(i)
}

// handleAddToLobby implements spec §4.9's AddToLobby: the target playlist
// entry must have pending_join set (only true under RemoteController mode,
// once a client has sent its JoinGame request and been parked).
func (s *Supervisor) handleAddToLobby(gameID uint64, clientID ClientID) RemoteResponse {
	lobby, ok := s.lobbies[gameID]
	if !ok {
		return ErrorResponse("no such lobby %d", gameID)
	}

	i := s.findPlaylistIndex(clientID)
	if i < 0 {
		return ErrorResponse("Client not ready")
	}
	entry := s.playlist[i]
	if entry.pendingJoin == nil {
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
		return ErrorResponse("Client not ready")
	}

	player, err := s.newPlayer(entry, *entry.pendingJoin)
	if err != nil {
		s.logger.Error().Err(err).Str("client", string(clientID)).Msg("engine unavailable for AddToLobby")
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
		return ErrorResponse("engine unavailable: %v", err)
	}
	if err := lobby.Join(player, *entry.pendingJoin); err != nil {
		player.Close()
		s.removeFromPlaylist(i)
		return ErrorResponse("%v", err)
	}
	s.removeFromPlaylist(i)
	return RemoteResponse{Kind: RespAddToLobby}
}

// handleStartGame implements spec §4.9's StartGame. On handshake failure the
// participants are dropped rather than returned to the playlist, a known
// limitation named in spec §9.
func (s *Supervisor) handleStartGame(gameID uint64) RemoteResponse {
	lobby, ok := s.lobbies[gameID]
	if !ok {
		return ErrorResponse("no such lobby %d", gameID)
	}
	if !lobby.IsValid() {
		return ErrorResponse("The lobby is empty")
	}
	delete(s.lobbies, gameID)
	s.removeLobbyFromOrder(gameID)

	g, err := lobby.Start()
	if err != nil {
		s.logger.Error().Err(err).Uint64("lobby_id", gameID).Msg("StartGame handshake failed")
		return ErrorResponse("start failed: %v", err)
	}
	s.registerGame(g)
	return RemoteResponse{Kind: RespStartGame}
}
