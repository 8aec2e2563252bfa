package storage

import (
	"context"
	"sync"

	"github.com/hashicorp/consul/api"
	pb "go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// fakeEtcd implements the KV calls Etcd makes, with CreateRevision
// comparisons evaluated against an in-memory map.
type fakeEtcd struct {
	clientv3.KV

	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newFakeEtcd() *fakeEtcd {
	return &fakeEtcd{data: make(map[string][]byte)}
}

func (f *fakeEtcd) Get(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &clientv3.GetResponse{Kvs: f.rangeLocked(key)}, nil
}

func (f *fakeEtcd) Txn(context.Context) clientv3.Txn {
	return &fakeTxn{kv: f}
}

func (f *fakeEtcd) rangeLocked(key string) []*mvccpb.KeyValue {
	v, ok := f.data[key]
	if !ok {
		return nil
	}
	return []*mvccpb.KeyValue{{Key: []byte(key), Value: v, CreateRevision: 1}}
}

type fakeTxn struct {
	kv     *fakeEtcd
	cmps   []clientv3.Cmp
	thenOp []clientv3.Op
	elseOp []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn  { t.cmps = cs; return t }
func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn { t.thenOp = ops; return t }
func (t *fakeTxn) Else(ops ...clientv3.Op) clientv3.Txn { t.elseOp = ops; return t }

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	f := t.kv
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	succeeded := true
	for _, c := range t.cmps {
		// only "key does not exist yet" comparisons are modelled
		if c.Target == pb.Compare_CREATE {
			if _, exists := f.data[string(c.Key)]; exists {
				succeeded = false
			}
		}
	}

	ops := t.thenOp
	if !succeeded {
		ops = t.elseOp
	}

	resp := &clientv3.TxnResponse{Succeeded: succeeded}
	for _, op := range ops {
		switch {
		case op.IsPut():
			f.data[string(op.KeyBytes())] = op.ValueBytes()
			resp.Responses = append(resp.Responses, &pb.ResponseOp{
				Response: &pb.ResponseOp_ResponsePut{ResponsePut: &pb.PutResponse{}},
			})
		case op.IsGet():
			resp.Responses = append(resp.Responses, &pb.ResponseOp{
				Response: &pb.ResponseOp_ResponseRange{ResponseRange: &pb.RangeResponse{Kvs: f.rangeLocked(string(op.KeyBytes()))}},
			})
		}
	}
	return resp, nil
}

// fakeConsul is an in-memory ConsulKV
type fakeConsul struct {
	mu    sync.Mutex
	data  map[string]*api.KVPair
	index uint64
	err   error
}

func newFakeConsul() *fakeConsul {
	return &fakeConsul{data: make(map[string]*api.KVPair)}
}

func (f *fakeConsul) Get(key string, _ *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	pair, ok := f.data[key]
	if !ok {
		return nil, &api.QueryMeta{}, nil
	}
	cp := *pair
	return &cp, &api.QueryMeta{LastIndex: f.index}, nil
}

func (f *fakeConsul) CAS(p *api.KVPair, _ *api.WriteOptions) (bool, *api.WriteMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, nil, f.err
	}

	existing, ok := f.data[p.Key]
	switch {
	case p.ModifyIndex == 0 && ok:
		return false, &api.WriteMeta{}, nil
	case p.ModifyIndex != 0 && (!ok || existing.ModifyIndex != p.ModifyIndex):
		return false, &api.WriteMeta{}, nil
	}

	f.index++
	cp := *p
	cp.CreateIndex = f.index
	cp.ModifyIndex = f.index
	f.data[p.Key] = &cp
	return true, &api.WriteMeta{}, nil
}
